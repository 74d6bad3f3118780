package telemetry

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// StatsdMetrics forwards counters and gauges to a DogStatsD agent. It hides
// the datadog client so the rest of the server only sees Metrics.
type StatsdMetrics struct {
	client ddstatsd.ClientInterface
	logger zerolog.Logger
	tags   []string
}

// NewStatsdMetrics connects to the agent at address. An empty address yields
// a no-op client.
func NewStatsdMetrics(address string, tags []string, logger zerolog.Logger) (*StatsdMetrics, error) {
	if address == "" {
		return &StatsdMetrics{client: &ddstatsd.NoOpClient{}, logger: logger}, nil
	}
	client, err := ddstatsd.New(address, ddstatsd.WithNamespace("arena"))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create statsd client for %s", address)
	}
	return &StatsdMetrics{client: client, logger: logger, tags: tags}, nil
}

// WrapStatsdClient adapts an existing client, mainly for tests.
func WrapStatsdClient(client ddstatsd.ClientInterface, logger zerolog.Logger) *StatsdMetrics {
	if client == nil {
		client = &ddstatsd.NoOpClient{}
	}
	return &StatsdMetrics{client: client, logger: logger}
}

// Add emits a count.
func (s *StatsdMetrics) Add(key string, delta uint64) {
	if s == nil {
		return
	}
	if err := s.client.Count(key, int64(delta), s.tags, 1); err != nil {
		s.logger.Warn().Err(err).Str("metric", key).Msg("failed to emit count")
	}
}

// Store emits a gauge.
func (s *StatsdMetrics) Store(key string, value uint64) {
	if s == nil {
		return
	}
	if err := s.client.Gauge(key, float64(value), s.tags, 1); err != nil {
		s.logger.Warn().Err(err).Str("metric", key).Msg("failed to emit gauge")
	}
}

// Timing emits a tick duration sample.
func (s *StatsdMetrics) Timing(key string, d time.Duration) {
	if s == nil {
		return
	}
	if err := s.client.Timing(key, d, s.tags, 1); err != nil {
		s.logger.Warn().Err(err).Str("metric", key).Msg("failed to emit timing")
	}
}

// Close flushes and closes the client.
func (s *StatsdMetrics) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
