package sim

import "time"

// TransitionKind identifies an authoritative state change produced during a
// tick. Transitions are the only output of the state machines; replication,
// logging and metrics consume them after the tick's mutations are done.
type TransitionKind string

const (
	TransitionSpawnDelayed   TransitionKind = "spawn_delayed"
	TransitionSpawnUndelayed TransitionKind = "spawn_undelayed"
	TransitionBusyChanged    TransitionKind = "busy_changed"
	TransitionPenaltyStarted TransitionKind = "penalty_started"
	TransitionAvatarSpawned  TransitionKind = "avatar_spawned"
	TransitionAvatarLost     TransitionKind = "avatar_lost"

	TransitionGameSuspending TransitionKind = "game_suspending"
	TransitionGameSuspended  TransitionKind = "game_suspended"
	TransitionGameResumed    TransitionKind = "game_resumed"
	TransitionMatchEnded     TransitionKind = "match_ended"
)

// Transition is a single state change. PlayerID is empty for world-level
// transitions.
type Transition struct {
	Kind     TransitionKind `json:"kind"`
	PlayerID string         `json:"playerId,omitempty"`
	Payload  any            `json:"payload,omitempty"`
}

// SpawnDelayedPayload describes why a player was held out of the world.
type SpawnDelayedPayload struct {
	Cause           string        `json:"cause"`
	PenaltyEstimate time.Duration `json:"penaltyEstimate"`
}

// BusyPayload restates a player's voluntary away flag.
type BusyPayload struct {
	Busy bool `json:"busy"`
}

// PenaltyPayload carries the countdown left on a return-to-game penalty.
type PenaltyPayload struct {
	Remaining time.Duration `json:"remaining"`
}

// AvatarPayload identifies the avatar that was materialised or lost.
type AvatarPayload struct {
	Avatar uint64 `json:"avatar"`
}

// SettlePayload carries the grace period before a confirmed suspension.
type SettlePayload struct {
	Settle time.Duration `json:"settle"`
}

// ClockPayload restates the match clock alongside a suspension change.
type ClockPayload struct {
	Remaining time.Duration `json:"remaining"`
	Frozen    bool          `json:"frozen"`
}

// MatchPayload names the match that ended and the one that replaces it.
type MatchPayload struct {
	MatchID string `json:"matchId"`
	NextID  string `json:"nextMatchId"`
}

// IsWorld reports whether the transition concerns the whole match.
func (t Transition) IsWorld() bool {
	switch t.Kind {
	case TransitionGameSuspending, TransitionGameSuspended, TransitionGameResumed, TransitionMatchEnded:
		return true
	default:
		return false
	}
}
