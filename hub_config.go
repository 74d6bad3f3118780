package server

import (
	"time"

	"github.com/rs/zerolog"

	"arena/server/internal/replication"
	"arena/server/internal/spawn"
	"arena/server/internal/telemetry"
	"arena/server/logging"
)

// HubConfig tunes the hub's tick loop and activity rules. Infrastructure
// fields are optional; DefaultHubConfig fills in safe defaults.
type HubConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int

	Spawn            spawn.Config
	SettlePeriod     time.Duration
	MatchDuration    time.Duration
	HeartbeatTimeout time.Duration
	SendQueueSize    int

	Logger    zerolog.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Transport replication.Transport
	Observers []replication.Observer
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		TickRate:         tickRate,
		CatchupMaxTicks:  3,
		CommandCapacity:  1024,
		PerActorLimit:    16,
		WarningStep:      256,
		Spawn:            spawn.DefaultConfig(),
		SettlePeriod:     settlePeriod,
		MatchDuration:    matchDuration,
		HeartbeatTimeout: disconnectAfter,
		SendQueueSize:    sendQueueSize,
		Logger:           zerolog.Nop(),
		Clock:            logging.SystemClock{},
	}
}
