package sim

import (
	"arena/server/internal/telemetry"
	"arena/server/logging"
)

// Deps carries shared infrastructure the tick loop reports through.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}
