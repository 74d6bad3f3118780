package server

import (
	"sync/atomic"
	"time"

	"arena/server/internal/telemetry"
)

type telemetryCounters struct {
	ticks              atomic.Uint64
	tickDurationMillis atomic.Int64
	overBudgetTicks    atomic.Uint64
	clampedTicks       atomic.Uint64
	transitions        atomic.Uint64
	commandsApplied    atomic.Uint64
	commandsDropped    atomic.Uint64
	queueWarnings      atomic.Uint64
	heartbeatTimeouts  atomic.Uint64
	metrics            telemetry.Metrics
}

type telemetrySnapshot struct {
	Ticks             uint64 `json:"ticks"`
	TickDuration      int64  `json:"tickDurationMillis"`
	OverBudgetTicks   uint64 `json:"overBudgetTicks"`
	ClampedTicks      uint64 `json:"clampedTicks"`
	Transitions       uint64 `json:"transitions"`
	CommandsApplied   uint64 `json:"commandsApplied"`
	CommandsDropped   uint64 `json:"commandsDropped"`
	QueueWarnings     uint64 `json:"queueWarnings"`
	HeartbeatTimeouts uint64 `json:"heartbeatTimeouts"`
}

func newTelemetryCounters(metrics telemetry.Metrics) *telemetryCounters {
	return &telemetryCounters{metrics: metrics}
}

func (t *telemetryCounters) RecordTick(duration, budget time.Duration, clamped bool) {
	t.ticks.Add(1)
	millis := max(duration.Milliseconds(), 0)
	t.tickDurationMillis.Store(millis)
	if budget > 0 && duration > budget {
		t.overBudgetTicks.Add(1)
		t.add("hub.tick.over_budget", 1)
	}
	if clamped {
		t.clampedTicks.Add(1)
		t.add("hub.tick.clamped", 1)
	}
	t.store("hub.tick.duration_ms", uint64(millis))
}

func (t *telemetryCounters) RecordStep(commands, transitions int) {
	t.commandsApplied.Add(uint64(commands))
	t.transitions.Add(uint64(transitions))
}

func (t *telemetryCounters) RecordTransition(kind string) {
	t.add("hub.transition."+kind, 1)
}

func (t *telemetryCounters) RecordCommandDrop(reason string) {
	t.commandsDropped.Add(1)
	t.add("hub.command.dropped."+reason, 1)
}

func (t *telemetryCounters) RecordQueueWarning() {
	t.queueWarnings.Add(1)
}

func (t *telemetryCounters) RecordHeartbeatTimeout() {
	t.heartbeatTimeouts.Add(1)
	t.add("hub.heartbeat.timeout", 1)
}

func (t *telemetryCounters) RecordPopulation(total, active, avatars int) {
	t.store("hub.sessions.total", uint64(total))
	t.store("hub.sessions.active", uint64(active))
	t.store("hub.avatars.live", uint64(avatars))
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		Ticks:             t.ticks.Load(),
		TickDuration:      t.tickDurationMillis.Load(),
		OverBudgetTicks:   t.overBudgetTicks.Load(),
		ClampedTicks:      t.clampedTicks.Load(),
		Transitions:       t.transitions.Load(),
		CommandsApplied:   t.commandsApplied.Load(),
		CommandsDropped:   t.commandsDropped.Load(),
		QueueWarnings:     t.queueWarnings.Load(),
		HeartbeatTimeouts: t.heartbeatTimeouts.Load(),
	}
}

func (t *telemetryCounters) add(key string, delta uint64) {
	if t.metrics != nil {
		t.metrics.Add(key, delta)
	}
}

func (t *telemetryCounters) store(key string, value uint64) {
	if t.metrics != nil {
		t.metrics.Store(key, value)
	}
}
