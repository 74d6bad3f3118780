package session

import (
	"fmt"
	"time"
)

// Handle identifies a session slot in the roster. The generation changes every
// time a slot is reused, so a handle held past its session's removal never
// resolves to the slot's next occupant.
type Handle struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// IsZero reports whether the handle was never assigned. Generations start at
// one so the zero value is never a live handle.
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.Index, h.Generation)
}

// AvatarHandle identifies a live avatar owned by the avatar factory. Zero
// means the session has no avatar in the world.
type AvatarHandle uint64

// DelayCause records which path put a session into spawn delay.
type DelayCause string

const (
	DelayCauseNone       DelayCause = ""
	DelayCauseInactivity DelayCause = "inactivity"
	DelayCauseVoluntary  DelayCause = "voluntary"
	DelayCauseForced     DelayCause = "forced"
)

// Session is the server-side state of one connected player.
type Session struct {
	Handle   Handle
	PlayerID string

	SpawnDelayed bool
	Busy         bool
	DelayCause   DelayCause

	Inactivity InactivityMonitor
	Penalty    PenaltyTimer

	Avatar AvatarHandle

	respawnPending bool
	respawnIn      time.Duration
	returning      bool
}

// New constructs a session for a freshly joined player.
func New(handle Handle, playerID string) *Session {
	return &Session{Handle: handle, PlayerID: playerID}
}

// HasAvatar reports whether the session currently owns a live avatar.
func (s *Session) HasAvatar() bool {
	return s.Avatar != 0
}

// Returning reports whether the player asked to rejoin and is waiting out the
// return-to-game penalty.
func (s *Session) Returning() bool {
	return s.returning
}

// SetReturning marks or clears the pending return.
func (s *Session) SetReturning(returning bool) {
	s.returning = returning
}

// ScheduleRespawn arms the respawn timer.
func (s *Session) ScheduleRespawn(after time.Duration) {
	if after < 0 {
		after = 0
	}
	s.respawnPending = true
	s.respawnIn = after
}

// CancelRespawn clears any pending respawn outright.
func (s *Session) CancelRespawn() {
	s.respawnPending = false
	s.respawnIn = 0
}

// RespawnPending reports whether a respawn timer is armed.
func (s *Session) RespawnPending() bool {
	return s.respawnPending
}

// RespawnIn reports the time left before a pending respawn may happen.
func (s *Session) RespawnIn() time.Duration {
	return s.respawnIn
}

// AdvanceRespawn counts the respawn timer down, clamped at zero.
func (s *Session) AdvanceRespawn(delta time.Duration) {
	if !s.respawnPending || delta <= 0 {
		return
	}
	s.respawnIn -= delta
	if s.respawnIn < 0 {
		s.respawnIn = 0
	}
}

// RespawnReady reports whether an avatar may be materialised now.
func (s *Session) RespawnReady() bool {
	return !s.respawnPending || s.respawnIn <= 0
}

// Snapshot is a read-only view of a session used by diagnostics.
type Snapshot struct {
	PlayerID           string     `json:"id"`
	Handle             Handle     `json:"handle"`
	SpawnDelayed       bool       `json:"spawnDelayed"`
	Busy               bool       `json:"busy"`
	DelayCause         DelayCause `json:"delayCause,omitempty"`
	Returning          bool       `json:"returning"`
	PenaltyPrimed      bool       `json:"penaltyPrimed"`
	PenaltyRemainingMs int64      `json:"penaltyRemainingMs"`
	IdleMs             int64      `json:"idleMs"`
	HasAvatar          bool       `json:"hasAvatar"`
	RespawnInMs        int64      `json:"respawnInMs,omitempty"`
}

// Snapshot captures the session's current flags.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		PlayerID:           s.PlayerID,
		Handle:             s.Handle,
		SpawnDelayed:       s.SpawnDelayed,
		Busy:               s.Busy,
		DelayCause:         s.DelayCause,
		Returning:          s.returning,
		PenaltyPrimed:      s.Penalty.Primed(),
		PenaltyRemainingMs: s.Penalty.Remaining().Milliseconds(),
		IdleMs:             s.Inactivity.ElapsedSinceInput().Milliseconds(),
		HasAvatar:          s.HasAvatar(),
	}
	if s.respawnPending {
		snap.RespawnInMs = s.respawnIn.Milliseconds()
	}
	return snap
}
