package lifecycle

import (
	"context"

	"arena/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player session is added to the roster.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a session leaves the roster.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
)

type PlayerJoinedPayload struct {
	Handle  string `json:"handle"`
	Players int    `json:"players"`
}

// PlayerDisconnectedPayload captures why a player left.
type PlayerDisconnectedPayload struct {
	Reason  string `json:"reason"`
	Players int    `json:"players"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
