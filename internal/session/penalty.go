package session

import "time"

// PenaltyTimer models the return-to-game cost of a voluntary idle. A penalty
// is primed when the player goes idle but only starts counting down once the
// player tries to come back.
type PenaltyTimer struct {
	duration  time.Duration
	remaining time.Duration
	explicit  bool
	started   bool
}

// Prime arms a penalty of the given duration without starting it. Priming an
// already primed or running penalty is a no-op so the cost is charged once.
func (t *PenaltyTimer) Prime(d time.Duration) {
	if d <= 0 || t.explicit {
		return
	}
	t.duration = d
	t.remaining = 0
	t.explicit = true
	t.started = false
}

// Start begins the countdown of a primed penalty. It reports false when the
// penalty was not primed or has already been started.
func (t *PenaltyTimer) Start() bool {
	if !t.explicit || t.started {
		return false
	}
	t.started = true
	t.remaining = t.duration
	return true
}

// Tick decrements the running countdown, clamped at zero. It returns true
// exactly on the tick the countdown reaches zero.
func (t *PenaltyTimer) Tick(delta time.Duration) bool {
	if t.remaining <= 0 || delta <= 0 {
		return false
	}
	t.remaining -= delta
	if t.remaining <= 0 {
		t.remaining = 0
		return true
	}
	return false
}

// Clear drops any primed or running penalty.
func (t *PenaltyTimer) Clear() {
	*t = PenaltyTimer{}
}

// Remaining reports the time left on a running penalty. A primed but not yet
// started penalty reports zero.
func (t *PenaltyTimer) Remaining() time.Duration {
	return t.remaining
}

// HasExplicitPenalty reports whether a penalty is primed or running.
func (t *PenaltyTimer) HasExplicitPenalty() bool {
	return t.explicit
}

// Primed reports whether a penalty is armed but has not started counting.
func (t *PenaltyTimer) Primed() bool {
	return t.explicit && !t.started
}

// Running reports whether the countdown is in progress.
func (t *PenaltyTimer) Running() bool {
	return t.started && t.remaining > 0
}

// Duration reports the configured length of the primed penalty.
func (t *PenaltyTimer) Duration() time.Duration {
	return t.duration
}
