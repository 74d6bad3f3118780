package spawn

import (
	"context"

	"arena/server/logging"
)

const (
	EventSpawnDelayed    logging.EventType = "spawn.delayed"
	EventSpawnUndelayed  logging.EventType = "spawn.undelayed"
	EventBusyChanged     logging.EventType = "spawn.busy_changed"
	EventPenaltyStarted  logging.EventType = "spawn.penalty_started"
	EventAvatarSpawned   logging.EventType = "spawn.avatar_spawned"
	EventAvatarDestroyed logging.EventType = "spawn.avatar_destroyed"
)

// DelayedPayload records why a player stopped spawning and how long the
// return penalty will be if they come back voluntarily.
type DelayedPayload struct {
	Cause            string `json:"cause"`
	InitialPenaltyMs int64  `json:"initialPenaltyMs"`
}

type BusyPayload struct {
	Busy bool `json:"busy"`
}

type PenaltyPayload struct {
	RemainingMs int64 `json:"remainingMs"`
}

type AvatarPayload struct {
	Avatar uint64 `json:"avatar"`
}

func Delayed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DelayedPayload) {
	publish(ctx, pub, logging.Event{Type: EventSpawnDelayed, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload})
}

func Undelayed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	publish(ctx, pub, logging.Event{Type: EventSpawnUndelayed, Tick: tick, Actor: actor, Severity: logging.SeverityInfo})
}

func BusyChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BusyPayload) {
	publish(ctx, pub, logging.Event{Type: EventBusyChanged, Tick: tick, Actor: actor, Severity: logging.SeverityDebug, Payload: payload})
}

func PenaltyStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PenaltyPayload) {
	publish(ctx, pub, logging.Event{Type: EventPenaltyStarted, Tick: tick, Actor: actor, Severity: logging.SeverityInfo, Payload: payload})
}

func AvatarSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AvatarPayload) {
	publish(ctx, pub, logging.Event{Type: EventAvatarSpawned, Tick: tick, Actor: actor, Severity: logging.SeverityDebug, Payload: payload})
}

func AvatarDestroyed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AvatarPayload) {
	publish(ctx, pub, logging.Event{Type: EventAvatarDestroyed, Tick: tick, Actor: actor, Severity: logging.SeverityDebug, Payload: payload})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategorySpawn
	pub.Publish(ctx, event)
}
