package logging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/server/logging"
	"arena/server/logging/sinks"
	"arena/server/logging/spawn"
)

func fixedClock() logging.Clock {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return logging.ClockFunc(func() time.Time { return at })
}

func TestRouterDeliversEventsToSinks(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"match": "m-1"}
	router := logging.NewRouter(cfg, fixedClock(), zerolog.Nop(), []logging.NamedSink{{Name: "memory", Sink: memory}})

	spawn.Delayed(context.Background(), router, 7, logging.PlayerRef("p1"), spawn.DelayedPayload{Cause: "voluntary", InitialPenaltyMs: 5000})
	require.NoError(t, router.Close(context.Background()))

	events := memory.Events()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, spawn.EventSpawnDelayed, event.Type)
	assert.Equal(t, uint64(7), event.Tick)
	assert.Equal(t, logging.CategorySpawn, event.Category)
	assert.Equal(t, "m-1", event.Extra["match"])
	assert.False(t, event.Time.IsZero(), "router stamps missing times")
	assert.Equal(t, uint64(1), router.Stats().EventsTotal)
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	router := logging.NewRouter(cfg, fixedClock(), zerolog.Nop(), []logging.NamedSink{{Name: "memory", Sink: memory}})

	spawn.BusyChanged(context.Background(), router, 1, logging.PlayerRef("p1"), spawn.BusyPayload{Busy: true})
	spawn.Undelayed(context.Background(), router, 2, logging.PlayerRef("p1"))
	require.NoError(t, router.Close(context.Background()))

	assert.Equal(t, []logging.EventType{spawn.EventSpawnUndelayed}, memory.Types())
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	memory := sinks.NewMemorySink()
	router := logging.NewRouter(logging.DefaultConfig(), fixedClock(), zerolog.Nop(), []logging.NamedSink{{Name: "memory", Sink: memory}})
	require.NoError(t, router.Close(context.Background()))
	require.NoError(t, router.Close(context.Background()), "close is idempotent")

	router.Publish(context.Background(), logging.Event{Type: "late"})
	assert.Empty(t, memory.Events())
	assert.Same(t, memory, router.Sink("memory"))
	assert.Nil(t, router.Sink("missing"))
}

type failingSink struct {
	writes int
}

func (s *failingSink) Write(logging.Event) error {
	s.writes++
	return errors.New("disk full")
}

func (s *failingSink) Close(context.Context) error { return nil }

func TestRouterKeepsOtherSinksRunningWhenOneFails(t *testing.T) {
	memory := sinks.NewMemorySink()
	failing := &failingSink{}
	router := logging.NewRouter(logging.DefaultConfig(), fixedClock(), zerolog.Nop(), []logging.NamedSink{
		{Name: "broken", Sink: failing},
		{Name: "memory", Sink: memory},
	})

	spawn.Undelayed(context.Background(), router, 1, logging.PlayerRef("p1"))
	require.NoError(t, router.Close(context.Background()))

	assert.Len(t, memory.Events(), 1)
	assert.Equal(t, 1, failing.writes)
}

func TestWithFieldsKeepsExistingExtras(t *testing.T) {
	var got logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		got = event
	}), map[string]any{"match": "m-1", "region": "eu"})

	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"region": "us"}})

	assert.Equal(t, "m-1", got.Extra["match"])
	assert.Equal(t, "us", got.Extra["region"])
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, logging.SeverityDebug, logging.ParseSeverity("DEBUG"))
	assert.Equal(t, logging.SeverityWarn, logging.ParseSeverity("warning"))
	assert.Equal(t, logging.SeverityError, logging.ParseSeverity(" error "))
	assert.Equal(t, logging.SeverityInfo, logging.ParseSeverity("bogus"))
}
