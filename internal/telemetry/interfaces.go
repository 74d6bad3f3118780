package telemetry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapZerolog adapts a zerolog logger to the Logger interface. Lines are
// written at info level.
func WrapZerolog(logger zerolog.Logger) Logger {
	return &zerologAdapter{logger: logger}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (l *zerologAdapter) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// Zerolog returns the underlying zerolog logger.
func (l *zerologAdapter) Zerolog() zerolog.Logger {
	return l.logger
}

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Counters is an in-process Metrics implementation backing the diagnostics
// endpoint.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64
}

// NewCounters constructs an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments the counter at key.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

// Store overwrites the gauge at key.
func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Snapshot copies the current values.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Fanout forwards every metric to all non-nil targets.
func Fanout(targets ...Metrics) Metrics {
	live := make(multiMetrics, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			live = append(live, target)
		}
	}
	return live
}

type multiMetrics []Metrics

func (m multiMetrics) Add(key string, delta uint64) {
	for _, target := range m {
		target.Add(key, delta)
	}
}

func (m multiMetrics) Store(key string, value uint64) {
	for _, target := range m {
		target.Store(key, value)
	}
}
