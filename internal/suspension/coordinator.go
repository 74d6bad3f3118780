// Package suspension freezes the match when nobody is playing. The
// coordinator only looks at the roster's spawn-delay flags; it never changes
// them except through an explicit suspend request from a lone player.
package suspension

import (
	"time"

	"arena/server/internal/session"
	"arena/server/internal/sim"
)

type State int

const (
	Active State = iota
	CoolingDown
	Suspended
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case CoolingDown:
		return "cooling_down"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MatchClock is the part of the match clock the coordinator drives.
type MatchClock interface {
	Freeze()
	Resume()
	Frozen() bool
	Remaining() time.Duration
}

type Sessions interface {
	ForEach(fn func(*session.Session))
	Len() int
}

// Delayer is the spawn-side half of a server suspend request.
type Delayer interface {
	ForceDelay(sess *session.Session) []sim.Transition
	RequestUndelay(sess *session.Session) []sim.Transition
}

type Coordinator struct {
	settlePeriod    time.Duration
	clock           MatchClock
	state           State
	settleRemaining time.Duration
	lastTotal       int
}

func NewCoordinator(settlePeriod time.Duration, clock MatchClock) *Coordinator {
	if settlePeriod < 0 {
		settlePeriod = 0
	}
	return &Coordinator{settlePeriod: settlePeriod, clock: clock}
}

func (c *Coordinator) State() State {
	return c.state
}

// SettleRemaining reports the grace time left before a cooling down match is
// suspended.
func (c *Coordinator) SettleRemaining() time.Duration {
	return c.settleRemaining
}

// Evaluate runs once per tick after the spawn pass. The match suspends only
// when every session is spawn-delayed for a whole settle period; any active
// session cancels the countdown or resumes the match.
func (c *Coordinator) Evaluate(sessions Sessions, delta time.Duration) []sim.Transition {
	total := sessions.Len()
	active := 0
	sessions.ForEach(func(sess *session.Session) {
		if !sess.SpawnDelayed {
			active++
		}
	})
	lastTotal := c.lastTotal
	c.lastTotal = total

	switch c.state {
	case Active:
		if active > 0 || (total == 0 && lastTotal == 0) {
			return nil
		}
		if c.settlePeriod <= 0 {
			return c.suspend()
		}
		c.state = CoolingDown
		c.settleRemaining = c.settlePeriod
		return []sim.Transition{{
			Kind:    sim.TransitionGameSuspending,
			Payload: sim.SettlePayload{Settle: c.settlePeriod},
		}}
	case CoolingDown:
		if active > 0 {
			return c.resume()
		}
		c.settleRemaining -= delta
		if c.settleRemaining > 0 {
			return nil
		}
		return c.suspend()
	case Suspended:
		if active > 0 {
			return c.resume()
		}
	}
	return nil
}

// RequestServerSuspend lets the only player in the match pause or unpause it.
// Suspending spawn-delays the player without a penalty and freezes the match
// at once; unsuspending runs the normal undelay path and the match resumes on
// the next evaluation that sees the player active. Requests from anyone who
// is not alone in the match are ignored.
func (c *Coordinator) RequestServerSuspend(sessions Sessions, sess *session.Session, suspend bool, delayer Delayer) []sim.Transition {
	if sess == nil || sessions.Len() != 1 {
		return nil
	}
	if !suspend {
		return delayer.RequestUndelay(sess)
	}
	out := delayer.ForceDelay(sess)
	if c.state != Suspended {
		out = append(out, c.suspend()...)
	}
	return out
}

// Reset returns the coordinator to Active for a new match.
func (c *Coordinator) Reset() {
	c.state = Active
	c.settleRemaining = 0
	c.lastTotal = 0
}

func (c *Coordinator) suspend() []sim.Transition {
	c.state = Suspended
	c.settleRemaining = 0
	c.clock.Freeze()
	return []sim.Transition{c.clockTransition(sim.TransitionGameSuspended)}
}

func (c *Coordinator) resume() []sim.Transition {
	wasSuspended := c.state == Suspended
	c.state = Active
	c.settleRemaining = 0
	if wasSuspended {
		c.clock.Resume()
	}
	return []sim.Transition{c.clockTransition(sim.TransitionGameResumed)}
}

func (c *Coordinator) clockTransition(kind sim.TransitionKind) sim.Transition {
	return sim.Transition{
		Kind:    kind,
		Payload: sim.ClockPayload{Remaining: c.clock.Remaining(), Frozen: c.clock.Frozen()},
	}
}

// Snapshot is the diagnostics view of the coordinator.
type Snapshot struct {
	State             State `json:"state"`
	SettleRemainingMs int64 `json:"settleRemainingMs"`
}

func (c *Coordinator) Snapshot() Snapshot {
	return Snapshot{State: c.state, SettleRemainingMs: c.settleRemaining.Milliseconds()}
}
