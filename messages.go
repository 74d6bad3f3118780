package server

import (
	"arena/server/internal/session"
	"arena/server/internal/suspension"
)

// JoinConfig tells a client the timings it should expect.
type JoinConfig struct {
	TickRate              int   `json:"tickRate"`
	InactivityThresholdMs int64 `json:"inactivityThresholdMs"`
	RespawnDelayMs        int64 `json:"respawnDelayMs"`
	UndelayPenaltyMs      int64 `json:"undelayPenaltyMs"`
	SettlePeriodMs        int64 `json:"settlePeriodMs"`
	HeartbeatIntervalMs   int64 `json:"heartbeatIntervalMs"`
}

type JoinResponse struct {
	Ver     int        `json:"ver"`
	ID      string     `json:"id"`
	MatchID string     `json:"matchId"`
	Config  JoinConfig `json:"config"`
}

type DiagnosticsPlayer struct {
	session.Snapshot
	LastHeartbeat int64 `json:"lastHeartbeat"`
	RTTMillis     int64 `json:"rttMillis"`
	Connected     bool  `json:"connected"`
}

type Diagnostics struct {
	Ver              int                 `json:"ver"`
	MatchID          string              `json:"matchId"`
	Tick             uint64              `json:"tick"`
	Suspension       suspension.Snapshot `json:"suspension"`
	ClockRemainingMs int64               `json:"clockRemainingMs"`
	ClockFrozen      bool                `json:"clockFrozen"`
	PendingCommands  int                 `json:"pendingCommands"`
	LiveAvatars      int                 `json:"liveAvatars"`
	Players          []DiagnosticsPlayer `json:"players"`
	Telemetry        telemetrySnapshot   `json:"telemetry"`
}
