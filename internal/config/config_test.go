package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/server/logging"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 20*time.Second, cfg.Spawn.InactivityThreshold)
	assert.Equal(t, 5*time.Second, cfg.Spawn.UndelayPenalty)
	assert.Equal(t, 2*time.Second, cfg.Hub.SettlePeriod)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "arena.yaml", `
addr: ":9000"
hub:
  tick_rate: 30
  settle_period: 500ms
spawn:
  undelay_penalty: 3s
events:
  sinks: [console, memory]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 30, cfg.Hub.TickRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Hub.SettlePeriod)
	assert.Equal(t, 3*time.Second, cfg.Spawn.UndelayPenalty)
	assert.Equal(t, 1500*time.Millisecond, cfg.Spawn.RespawnDelay, "unset keys keep their defaults")
	assert.Equal(t, []string{"console", "memory"}, cfg.Events.Sinks)
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	path := writeFile(t, "arena.yaml", "hub:\n  settle_period: 1s\n")
	t.Setenv("ARENA_HUB_SETTLE_PERIOD", "0s")
	t.Setenv("ARENA_SPAWN_INACTIVITY_THRESHOLD", "45s")
	t.Setenv("ARENA_STATSD_TAGS", "env:test,region:eu")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Hub.SettlePeriod)
	assert.Equal(t, 45*time.Second, cfg.Spawn.InactivityThreshold)
	assert.Equal(t, []string{"env:test", "region:eu"}, cfg.Statsd.Tags)
}

func TestDotEnvFiles(t *testing.T) {
	envFile := writeFile(t, ".env", "ARENA_REDIS_ADDR=localhost:6379\n")
	t.Cleanup(func() { os.Unsetenv("ARENA_REDIS_ADDR") })

	cfg, err := Load("", envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"tick rate":       func(c *Config) { c.Hub.TickRate = 0 },
		"negative settle": func(c *Config) { c.Hub.SettlePeriod = -time.Second },
		"match duration":  func(c *Config) { c.Hub.MatchDuration = 0 },
		"inactivity":      func(c *Config) { c.Spawn.InactivityThreshold = 0 },
		"log level":       func(c *Config) { c.Log.Level = "loud" },
		"unknown sink":    func(c *Config) { c.Events.Sinks = []string{"kafka"} },
		"json sink path":  func(c *Config) { c.Events.Sinks = []string{"json"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalid))
		})
	}
}

func TestEventsLoggingConfig(t *testing.T) {
	events := EventsConfig{
		Sinks:           []string{"json"},
		MinimumSeverity: "warn",
		JSONPath:        "/tmp/events.jsonl",
	}
	cfg := events.LoggingConfig()
	assert.True(t, cfg.HasSink("json"))
	assert.Equal(t, logging.SeverityWarn, cfg.MinimumSeverity)
	assert.Equal(t, "/tmp/events.jsonl", cfg.JSON.FilePath)
	assert.Equal(t, 512, cfg.BufferSize)
}
