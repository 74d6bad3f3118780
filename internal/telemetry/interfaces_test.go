package telemetry

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := WrapZerolog(zerolog.New(&buf))
	logger.Printf("hello %s", "world")
	assert.Contains(t, buf.String(), `"message":"hello world"`)
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestLoggerFuncNil(t *testing.T) {
	var fn LoggerFunc
	fn.Printf("ignored %d", 42)
}

func TestCountersAddAndStore(t *testing.T) {
	counters := NewCounters()
	counters.Add("spawn.delayed", 2)
	counters.Add("spawn.delayed", 3)
	counters.Store("roster.active", 4)

	snapshot := counters.Snapshot()
	assert.Equal(t, uint64(5), snapshot["spawn.delayed"])
	assert.Equal(t, uint64(4), snapshot["roster.active"])

	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	assert.Nil(t, nilCounters.Snapshot())
}

func TestFanoutSkipsNilTargets(t *testing.T) {
	first := NewCounters()
	second := NewCounters()
	metrics := Fanout(first, nil, second)
	metrics.Add("ticks", 1)
	metrics.Store("depth", 7)

	for _, c := range []*Counters{first, second} {
		snap := c.Snapshot()
		assert.Equal(t, uint64(1), snap["ticks"])
		assert.Equal(t, uint64(7), snap["depth"])
	}
}

func TestStatsdMetricsWithoutAddressIsNoop(t *testing.T) {
	metrics, err := NewStatsdMetrics("", nil, zerolog.Nop())
	require.NoError(t, err)
	metrics.Add("ticks", 1)
	metrics.Store("depth", 2)
	require.NoError(t, metrics.Close())
}
