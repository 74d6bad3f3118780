package session

import "time"

// InactivityMonitor tracks how long a player has gone without producing
// meaningful input. Time only moves when the tick driver calls Advance.
type InactivityMonitor struct {
	elapsed time.Duration
}

// RecordInput resets the elapsed-since-input counter.
func (m *InactivityMonitor) RecordInput() {
	m.elapsed = 0
}

// Advance accumulates simulated time since the last input.
func (m *InactivityMonitor) Advance(delta time.Duration) {
	if delta <= 0 {
		return
	}
	m.elapsed += delta
}

// ElapsedSinceInput reports the simulated time since the last input.
func (m *InactivityMonitor) ElapsedSinceInput() time.Duration {
	return m.elapsed
}
