package replication

import "time"

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Server to client message types.
const (
	TypeWelcome                       = "welcome"
	TypePlayerSpawnDelayed            = "playerSpawnDelayed"
	TypePlayerSpawnUndelayed          = "playerSpawnUndelayed"
	TypePlayerSpawnDelayStatusChanged = "playerSpawnDelayStatusChanged"
	TypePlayerBusyStatusChanged       = "playerBusyStatusChanged"
	TypePlayerReturnPenaltyStarted    = "playerReturnPenaltyStarted"
	TypeGameSuspending                = "gameSuspending"
	TypeGameSuspended                 = "gameSuspended"
	TypeGameResumed                   = "gameResumed"
	TypeMatchEnded                    = "matchEnded"
)

// Message is any server to client payload. Every message restates the full
// value it describes so a client that missed earlier messages converges on
// the next one.
type Message interface {
	MessageType() string
}

// PlayerSpawnDelayed tells a player they are out of the world. The penalty is
// the cost they will pay if they ask to come back, zero when none applies.
type PlayerSpawnDelayed struct {
	Ver              int    `json:"ver"`
	Type             string `json:"type"`
	InitialPenaltyMs int64  `json:"initialPenaltyMs"`
}

func NewPlayerSpawnDelayed(penalty time.Duration) PlayerSpawnDelayed {
	return PlayerSpawnDelayed{Ver: Version, Type: TypePlayerSpawnDelayed, InitialPenaltyMs: penalty.Milliseconds()}
}

func (PlayerSpawnDelayed) MessageType() string { return TypePlayerSpawnDelayed }

type PlayerSpawnUndelayed struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
}

func NewPlayerSpawnUndelayed() PlayerSpawnUndelayed {
	return PlayerSpawnUndelayed{Ver: Version, Type: TypePlayerSpawnUndelayed}
}

func (PlayerSpawnUndelayed) MessageType() string { return TypePlayerSpawnUndelayed }

type PlayerSpawnDelayStatusChanged struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Delayed  bool   `json:"delayed"`
}

func NewPlayerSpawnDelayStatusChanged(playerID string, delayed bool) PlayerSpawnDelayStatusChanged {
	return PlayerSpawnDelayStatusChanged{Ver: Version, Type: TypePlayerSpawnDelayStatusChanged, PlayerID: playerID, Delayed: delayed}
}

func (PlayerSpawnDelayStatusChanged) MessageType() string { return TypePlayerSpawnDelayStatusChanged }

type PlayerBusyStatusChanged struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Busy     bool   `json:"busy"`
}

func NewPlayerBusyStatusChanged(playerID string, busy bool) PlayerBusyStatusChanged {
	return PlayerBusyStatusChanged{Ver: Version, Type: TypePlayerBusyStatusChanged, PlayerID: playerID, Busy: busy}
}

func (PlayerBusyStatusChanged) MessageType() string { return TypePlayerBusyStatusChanged }

// PlayerReturnPenaltyStarted tells a returning player how long they wait.
type PlayerReturnPenaltyStarted struct {
	Ver         int    `json:"ver"`
	Type        string `json:"type"`
	RemainingMs int64  `json:"remainingMs"`
}

func NewPlayerReturnPenaltyStarted(remaining time.Duration) PlayerReturnPenaltyStarted {
	return PlayerReturnPenaltyStarted{Ver: Version, Type: TypePlayerReturnPenaltyStarted, RemainingMs: remaining.Milliseconds()}
}

func (PlayerReturnPenaltyStarted) MessageType() string { return TypePlayerReturnPenaltyStarted }

type GameSuspending struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	SettleMs int64  `json:"settleMs"`
}

func NewGameSuspending(settle time.Duration) GameSuspending {
	return GameSuspending{Ver: Version, Type: TypeGameSuspending, SettleMs: settle.Milliseconds()}
}

func (GameSuspending) MessageType() string { return TypeGameSuspending }

type GameSuspended struct {
	Ver         int    `json:"ver"`
	Type        string `json:"type"`
	RemainingMs int64  `json:"remainingMs"`
}

func NewGameSuspended(remaining time.Duration) GameSuspended {
	return GameSuspended{Ver: Version, Type: TypeGameSuspended, RemainingMs: remaining.Milliseconds()}
}

func (GameSuspended) MessageType() string { return TypeGameSuspended }

type GameResumed struct {
	Ver         int    `json:"ver"`
	Type        string `json:"type"`
	RemainingMs int64  `json:"remainingMs"`
}

func NewGameResumed(remaining time.Duration) GameResumed {
	return GameResumed{Ver: Version, Type: TypeGameResumed, RemainingMs: remaining.Milliseconds()}
}

func (GameResumed) MessageType() string { return TypeGameResumed }

type MatchEnded struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	NextID  string `json:"nextMatchId"`
}

func NewMatchEnded(matchID, nextID string) MatchEnded {
	return MatchEnded{Ver: Version, Type: TypeMatchEnded, MatchID: matchID, NextID: nextID}
}

func (MatchEnded) MessageType() string { return TypeMatchEnded }

// PlayerStatus is one roster entry inside a welcome message.
type PlayerStatus struct {
	ID      string `json:"id"`
	Delayed bool   `json:"delayed"`
	Busy    bool   `json:"busy"`
}

// Welcome restates everything a freshly connected client needs to mirror.
type Welcome struct {
	Ver                int            `json:"ver"`
	Type               string         `json:"type"`
	ID                 string         `json:"id"`
	MatchID            string         `json:"matchId"`
	Players            []PlayerStatus `json:"players"`
	Delayed            bool           `json:"delayed"`
	PenaltyRemainingMs int64          `json:"penaltyRemainingMs"`
	Suspending         bool           `json:"suspending"`
	Suspended          bool           `json:"suspended"`
	RemainingMs        int64          `json:"remainingMs"`
}

func (Welcome) MessageType() string { return TypeWelcome }
