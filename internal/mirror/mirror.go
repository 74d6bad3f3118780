// Package mirror is the client-side view of the activity state. A client
// applies whatever messages reach it; because each one restates a full value,
// the view converges again after any message is lost.
package mirror

import (
	"time"

	"arena/server/internal/replication"
)

type Peer struct {
	Delayed bool
	Busy    bool
}

type Mirror struct {
	SelfID  string
	MatchID string

	Delayed          bool
	InitialPenalty   time.Duration
	PenaltyRemaining time.Duration

	Suspending     bool
	Suspended      bool
	ClockRemaining time.Duration

	Peers map[string]Peer
}

func New(selfID string) *Mirror {
	return &Mirror{SelfID: selfID, Peers: make(map[string]Peer)}
}

// Apply folds one server message into the view. Unknown messages are ignored.
func (m *Mirror) Apply(msg replication.Message) {
	switch msg := msg.(type) {
	case replication.Welcome:
		m.SelfID = msg.ID
		m.MatchID = msg.MatchID
		m.Delayed = msg.Delayed
		m.PenaltyRemaining = time.Duration(msg.PenaltyRemainingMs) * time.Millisecond
		m.Suspending = msg.Suspending
		m.Suspended = msg.Suspended
		m.ClockRemaining = time.Duration(msg.RemainingMs) * time.Millisecond
		m.Peers = make(map[string]Peer, len(msg.Players))
		for _, p := range msg.Players {
			m.Peers[p.ID] = Peer{Delayed: p.Delayed, Busy: p.Busy}
		}
	case replication.PlayerSpawnDelayed:
		m.setSelfDelayed(true)
		m.InitialPenalty = time.Duration(msg.InitialPenaltyMs) * time.Millisecond
		m.PenaltyRemaining = 0
	case replication.PlayerSpawnUndelayed:
		m.setSelfDelayed(false)
	case replication.PlayerReturnPenaltyStarted:
		m.setSelfDelayed(true)
		m.PenaltyRemaining = time.Duration(msg.RemainingMs) * time.Millisecond
	case replication.PlayerSpawnDelayStatusChanged:
		peer := m.Peers[msg.PlayerID]
		peer.Delayed = msg.Delayed
		m.Peers[msg.PlayerID] = peer
		if msg.PlayerID == m.SelfID {
			m.setSelfDelayed(msg.Delayed)
		}
	case replication.PlayerBusyStatusChanged:
		peer := m.Peers[msg.PlayerID]
		peer.Busy = msg.Busy
		m.Peers[msg.PlayerID] = peer
	case replication.GameSuspending:
		m.Suspending = true
	case replication.GameSuspended:
		m.Suspending = false
		m.Suspended = true
		m.ClockRemaining = time.Duration(msg.RemainingMs) * time.Millisecond
	case replication.GameResumed:
		m.Suspending = false
		m.Suspended = false
		m.ClockRemaining = time.Duration(msg.RemainingMs) * time.Millisecond
	case replication.MatchEnded:
		m.MatchID = msg.NextID
		m.Suspending = false
		m.Suspended = false
		m.PenaltyRemaining = 0
	}
}

// Advance runs the local countdowns between server messages.
func (m *Mirror) Advance(delta time.Duration) {
	if m.PenaltyRemaining > 0 {
		m.PenaltyRemaining = max(m.PenaltyRemaining-delta, 0)
	}
	if !m.Suspended && m.ClockRemaining > 0 {
		m.ClockRemaining = max(m.ClockRemaining-delta, 0)
	}
}

func (m *Mirror) setSelfDelayed(delayed bool) {
	m.Delayed = delayed
	if !delayed {
		m.PenaltyRemaining = 0
	}
	if m.SelfID == "" {
		return
	}
	peer := m.Peers[m.SelfID]
	peer.Delayed = delayed
	m.Peers[m.SelfID] = peer
}
