// Package spawn decides when a player's avatar may enter the world. It owns
// the inactivity, idle and return-to-game rules; every operation mutates the
// session it is given and reports what changed as transitions.
package spawn

import (
	"time"

	"arena/server/internal/session"
	"arena/server/internal/sim"
)

// AvatarFactory materialises and removes avatars in the world.
type AvatarFactory interface {
	SpawnAvatar(owner session.Handle) session.AvatarHandle
	DestroyAvatar(avatar session.AvatarHandle)
}

// Sessions is the read side of the roster the scheduler iterates.
type Sessions interface {
	ForEach(fn func(*session.Session))
}

type Config struct {
	InactivityThreshold time.Duration `yaml:"inactivity_threshold" env:"INACTIVITY_THRESHOLD"`
	RespawnDelay        time.Duration `yaml:"respawn_delay" env:"RESPAWN_DELAY"`
	UndelayPenalty      time.Duration `yaml:"undelay_penalty" env:"UNDELAY_PENALTY"`
}

func DefaultConfig() Config {
	return Config{
		InactivityThreshold: 20 * time.Second,
		RespawnDelay:        1500 * time.Millisecond,
		UndelayPenalty:      5 * time.Second,
	}
}

type Scheduler struct {
	cfg     Config
	avatars AvatarFactory
}

func NewScheduler(cfg Config, avatars AvatarFactory) *Scheduler {
	return &Scheduler{cfg: cfg, avatars: avatars}
}

func (s *Scheduler) Config() Config {
	return s.cfg
}

// Advance moves the session's timers forward by one tick. A running return
// penalty that reaches zero releases the session from spawn delay.
func (s *Scheduler) Advance(sess *session.Session, delta time.Duration) []sim.Transition {
	sess.Inactivity.Advance(delta)
	sess.AdvanceRespawn(delta)
	if sess.Penalty.Tick(delta) && sess.Returning() {
		return s.release(sess, nil)
	}
	return nil
}

// AdvanceAll runs Advance over every session.
func (s *Scheduler) AdvanceAll(sessions Sessions, delta time.Duration) []sim.Transition {
	var out []sim.Transition
	sessions.ForEach(func(sess *session.Session) {
		out = append(out, s.Advance(sess, delta)...)
	})
	return out
}

// Spawn materialises an avatar for a session that has none, is not delayed and
// has no respawn timer left to wait out.
func (s *Scheduler) Spawn(sess *session.Session) []sim.Transition {
	if sess.HasAvatar() || sess.SpawnDelayed || !sess.RespawnReady() {
		return nil
	}
	sess.Avatar = s.avatars.SpawnAvatar(sess.Handle)
	sess.CancelRespawn()
	return []sim.Transition{{
		Kind:     sim.TransitionAvatarSpawned,
		PlayerID: sess.PlayerID,
		Payload:  sim.AvatarPayload{Avatar: uint64(sess.Avatar)},
	}}
}

// SpawnAll runs the spawn pass over every session.
func (s *Scheduler) SpawnAll(sessions Sessions) []sim.Transition {
	var out []sim.Transition
	sessions.ForEach(func(sess *session.Session) {
		out = append(out, s.Spawn(sess)...)
	})
	return out
}

// AvatarDestroyed handles the death of a session's avatar. A player that has
// not touched the controls for longer than the inactivity threshold is held
// out of the world without a penalty; anyone else respawns after the delay.
func (s *Scheduler) AvatarDestroyed(sess *session.Session) []sim.Transition {
	if !sess.HasAvatar() {
		return nil
	}
	out := s.dropAvatar(sess, nil)
	if sess.SpawnDelayed {
		return out
	}
	if sess.Inactivity.ElapsedSinceInput() > s.cfg.InactivityThreshold {
		return s.delay(sess, session.DelayCauseInactivity, out)
	}
	sess.ScheduleRespawn(s.cfg.RespawnDelay)
	return out
}

// RequestIdle takes the player out of the game voluntarily. The return
// penalty is primed here and only starts once the player asks to come back.
func (s *Scheduler) RequestIdle(sess *session.Session) []sim.Transition {
	if sess.SpawnDelayed {
		return nil
	}
	out := s.dropAvatar(sess, nil)
	sess.CancelRespawn()
	if !sess.Busy {
		sess.Busy = true
		out = append(out, busyTransition(sess))
	}
	sess.Penalty.Prime(s.cfg.UndelayPenalty)
	return s.delay(sess, session.DelayCauseVoluntary, out)
}

// RequestUndelay asks to bring a delayed player back. A primed penalty starts
// counting and the session stays delayed until it expires; a session delayed
// without a penalty is released at once. The request counts as input.
func (s *Scheduler) RequestUndelay(sess *session.Session) []sim.Transition {
	sess.Inactivity.RecordInput()
	if !sess.SpawnDelayed || sess.Returning() {
		return nil
	}
	if sess.Penalty.Start() {
		sess.SetReturning(true)
		return []sim.Transition{{
			Kind:     sim.TransitionPenaltyStarted,
			PlayerID: sess.PlayerID,
			Payload:  sim.PenaltyPayload{Remaining: sess.Penalty.Remaining()},
		}}
	}
	return s.release(sess, nil)
}

// ForceDelay holds the session out of the world without a penalty. It is used
// when the sole player asks the server to suspend.
func (s *Scheduler) ForceDelay(sess *session.Session) []sim.Transition {
	if sess.SpawnDelayed {
		return nil
	}
	out := s.dropAvatar(sess, nil)
	sess.CancelRespawn()
	return s.delay(sess, session.DelayCauseForced, out)
}

// ClearPenalty forgets any primed or running penalty. A session that was
// already waiting out its penalty is released.
func (s *Scheduler) ClearPenalty(sess *session.Session) []sim.Transition {
	if sess.Returning() {
		return s.release(sess, nil)
	}
	sess.Penalty.Clear()
	return nil
}

// Release destroys the avatar of a session that is leaving the roster.
func (s *Scheduler) Release(sess *session.Session) {
	if sess.HasAvatar() {
		s.avatars.DestroyAvatar(sess.Avatar)
		sess.Avatar = 0
	}
	sess.CancelRespawn()
}

func (s *Scheduler) delay(sess *session.Session, cause session.DelayCause, out []sim.Transition) []sim.Transition {
	sess.SpawnDelayed = true
	sess.DelayCause = cause
	var estimate time.Duration
	if sess.Penalty.Primed() {
		estimate = sess.Penalty.Duration()
	}
	return append(out, sim.Transition{
		Kind:     sim.TransitionSpawnDelayed,
		PlayerID: sess.PlayerID,
		Payload:  sim.SpawnDelayedPayload{Cause: string(cause), PenaltyEstimate: estimate},
	})
}

func (s *Scheduler) release(sess *session.Session, out []sim.Transition) []sim.Transition {
	sess.SpawnDelayed = false
	sess.DelayCause = session.DelayCauseNone
	sess.SetReturning(false)
	sess.Penalty.Clear()
	sess.CancelRespawn()
	if sess.Busy {
		sess.Busy = false
		out = append(out, busyTransition(sess))
	}
	return append(out, sim.Transition{Kind: sim.TransitionSpawnUndelayed, PlayerID: sess.PlayerID})
}

func (s *Scheduler) dropAvatar(sess *session.Session, out []sim.Transition) []sim.Transition {
	if !sess.HasAvatar() {
		return out
	}
	avatar := sess.Avatar
	s.avatars.DestroyAvatar(avatar)
	sess.Avatar = 0
	return append(out, sim.Transition{
		Kind:     sim.TransitionAvatarLost,
		PlayerID: sess.PlayerID,
		Payload:  sim.AvatarPayload{Avatar: uint64(avatar)},
	})
}

func busyTransition(sess *session.Session) sim.Transition {
	return sim.Transition{
		Kind:     sim.TransitionBusyChanged,
		PlayerID: sess.PlayerID,
		Payload:  sim.BusyPayload{Busy: sess.Busy},
	}
}
