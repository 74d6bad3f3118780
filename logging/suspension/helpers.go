package suspension

import (
	"context"

	"arena/server/logging"
)

const (
	EventCoolingDown logging.EventType = "suspension.cooling_down"
	EventSuspended   logging.EventType = "suspension.suspended"
	EventResumed     logging.EventType = "suspension.resumed"
	EventMatchEnded  logging.EventType = "suspension.match_ended"
)

type CoolingDownPayload struct {
	SettleMs int64 `json:"settleMs"`
}

// ClockPayload carries the match clock at the moment of the transition.
type ClockPayload struct {
	RemainingMs int64 `json:"remainingMs"`
	Players     int   `json:"players"`
}

func CoolingDown(ctx context.Context, pub logging.Publisher, tick uint64, match logging.EntityRef, payload CoolingDownPayload) {
	publish(ctx, pub, logging.Event{Type: EventCoolingDown, Tick: tick, Actor: match, Severity: logging.SeverityDebug, Payload: payload})
}

func Suspended(ctx context.Context, pub logging.Publisher, tick uint64, match logging.EntityRef, payload ClockPayload) {
	publish(ctx, pub, logging.Event{Type: EventSuspended, Tick: tick, Actor: match, Severity: logging.SeverityInfo, Payload: payload})
}

func Resumed(ctx context.Context, pub logging.Publisher, tick uint64, match logging.EntityRef, payload ClockPayload) {
	publish(ctx, pub, logging.Event{Type: EventResumed, Tick: tick, Actor: match, Severity: logging.SeverityInfo, Payload: payload})
}

func MatchEnded(ctx context.Context, pub logging.Publisher, tick uint64, match logging.EntityRef) {
	publish(ctx, pub, logging.Event{Type: EventMatchEnded, Tick: tick, Actor: match, Severity: logging.SeverityInfo})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategorySuspension
	pub.Publish(ctx, event)
}
