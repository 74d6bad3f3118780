// Package replication turns the transitions produced by a tick into
// per-recipient messages. It never blocks: the transport is expected to queue
// or drop, and a recipient that has gone away is skipped silently.
package replication

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"arena/server/internal/session"
	"arena/server/internal/sim"
	"arena/server/internal/telemetry"
)

// ErrRecipientGone is returned by a Transport when the player has no live
// connection. Replication treats it as a normal outcome.
var ErrRecipientGone = eris.New("recipient gone")

// Transport delivers one message to one player.
type Transport interface {
	Send(playerID string, msg Message) error
}

// Recipients enumerates the players that receive broadcasts.
type Recipients interface {
	ForEach(fn func(*session.Session))
}

// Observer sees every broadcast once, independent of how many players
// received it.
type Observer interface {
	Observe(msg Message)
}

type Replicator struct {
	transport Transport
	logger    zerolog.Logger
	metrics   telemetry.Metrics
	observers []Observer
}

func NewReplicator(transport Transport, logger zerolog.Logger, metrics telemetry.Metrics, observers ...Observer) *Replicator {
	live := make([]Observer, 0, len(observers))
	for _, observer := range observers {
		if observer != nil {
			live = append(live, observer)
		}
	}
	return &Replicator{
		transport: transport,
		logger:    logger.With().Str("component", "replication").Logger(),
		metrics:   metrics,
		observers: live,
	}
}

// Outbound is the message fan-out of a single transition.
type Outbound struct {
	Owner     []Message
	Broadcast []Message
}

// Translate maps a transition to the messages it produces. Avatar transitions
// belong to world replication and produce nothing here.
func Translate(t sim.Transition) Outbound {
	switch t.Kind {
	case sim.TransitionSpawnDelayed:
		payload, _ := t.Payload.(sim.SpawnDelayedPayload)
		return Outbound{
			Owner:     []Message{NewPlayerSpawnDelayed(payload.PenaltyEstimate)},
			Broadcast: []Message{NewPlayerSpawnDelayStatusChanged(t.PlayerID, true)},
		}
	case sim.TransitionSpawnUndelayed:
		return Outbound{
			Owner:     []Message{NewPlayerSpawnUndelayed()},
			Broadcast: []Message{NewPlayerSpawnDelayStatusChanged(t.PlayerID, false)},
		}
	case sim.TransitionBusyChanged:
		payload, _ := t.Payload.(sim.BusyPayload)
		return Outbound{Broadcast: []Message{NewPlayerBusyStatusChanged(t.PlayerID, payload.Busy)}}
	case sim.TransitionPenaltyStarted:
		payload, _ := t.Payload.(sim.PenaltyPayload)
		return Outbound{Owner: []Message{NewPlayerReturnPenaltyStarted(payload.Remaining)}}
	case sim.TransitionGameSuspending:
		payload, _ := t.Payload.(sim.SettlePayload)
		return Outbound{Broadcast: []Message{NewGameSuspending(payload.Settle)}}
	case sim.TransitionGameSuspended:
		payload, _ := t.Payload.(sim.ClockPayload)
		return Outbound{Broadcast: []Message{NewGameSuspended(payload.Remaining)}}
	case sim.TransitionGameResumed:
		payload, _ := t.Payload.(sim.ClockPayload)
		return Outbound{Broadcast: []Message{NewGameResumed(payload.Remaining)}}
	case sim.TransitionMatchEnded:
		payload, _ := t.Payload.(sim.MatchPayload)
		return Outbound{Broadcast: []Message{NewMatchEnded(payload.MatchID, payload.NextID)}}
	default:
		return Outbound{}
	}
}

// Emit delivers the messages for every transition in order and returns how
// many sends succeeded.
func (r *Replicator) Emit(recipients Recipients, transitions []sim.Transition) int {
	if r == nil || len(transitions) == 0 {
		return 0
	}
	var ids []string
	recipients.ForEach(func(sess *session.Session) {
		ids = append(ids, sess.PlayerID)
	})

	sent := 0
	for _, t := range transitions {
		out := Translate(t)
		for _, msg := range out.Owner {
			if r.SendTo(t.PlayerID, msg) {
				sent++
			}
		}
		for _, msg := range out.Broadcast {
			for _, id := range ids {
				if r.SendTo(id, msg) {
					sent++
				}
			}
			for _, observer := range r.observers {
				observer.Observe(msg)
			}
		}
	}
	return sent
}

// SendTo delivers a single message and reports whether the transport took it.
func (r *Replicator) SendTo(playerID string, msg Message) bool {
	if r == nil || r.transport == nil || playerID == "" {
		return false
	}
	err := r.transport.Send(playerID, msg)
	if err == nil {
		r.count("replication.sent", 1)
		return true
	}
	if eris.Is(err, ErrRecipientGone) {
		r.count("replication.recipient_gone", 1)
		return false
	}
	r.count("replication.send_failed", 1)
	r.logger.Warn().Err(err).Str("player", playerID).Str("type", msg.MessageType()).Msg("send failed")
	return false
}

func (r *Replicator) count(key string, delta uint64) {
	if r.metrics != nil {
		r.metrics.Add(key, delta)
	}
}
