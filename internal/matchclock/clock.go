// Package matchclock implements the countdown of remaining match time.
package matchclock

import "time"

// Clock counts the remaining match time down once per tick. Only the
// suspension coordinator freezes and resumes it.
type Clock struct {
	duration  time.Duration
	remaining time.Duration
	frozen    bool
}

// New constructs a running clock for a match of the given length.
func New(duration time.Duration) *Clock {
	if duration < 0 {
		duration = 0
	}
	return &Clock{duration: duration, remaining: duration}
}

// Tick advances the countdown. It returns true exactly on the tick the match
// runs out. A frozen or expired clock does not move.
func (c *Clock) Tick(delta time.Duration) bool {
	if c.frozen || c.remaining <= 0 || delta <= 0 {
		return false
	}
	c.remaining -= delta
	if c.remaining <= 0 {
		c.remaining = 0
		return true
	}
	return false
}

// Freeze stops the countdown.
func (c *Clock) Freeze() {
	c.frozen = true
}

// Resume restarts a frozen countdown.
func (c *Clock) Resume() {
	c.frozen = false
}

// Frozen reports whether the countdown is stopped.
func (c *Clock) Frozen() bool {
	return c.frozen
}

// Remaining reports the time left in the match.
func (c *Clock) Remaining() time.Duration {
	return c.remaining
}

// Expired reports whether the match has run out.
func (c *Clock) Expired() bool {
	return c.remaining <= 0
}

// Reset starts a new match of the configured length, unfrozen.
func (c *Clock) Reset() {
	c.remaining = c.duration
	c.frozen = false
}
