// Package config loads server settings from defaults, an optional YAML file,
// optional .env files and ARENA_-prefixed environment variables, in that
// order of precedence.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"arena/server/internal/spawn"
	"arena/server/logging"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ARENA_"

var ErrInvalid = eris.New("invalid configuration")

type Config struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	ClientDir string        `yaml:"client_dir" env:"CLIENT_DIR"`
	Hub       HubConfig     `yaml:"hub" envPrefix:"HUB_"`
	Spawn     spawn.Config  `yaml:"spawn" envPrefix:"SPAWN_"`
	Log       LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Events    EventsConfig  `yaml:"events" envPrefix:"EVENTS_"`
	Statsd    StatsdConfig  `yaml:"statsd" envPrefix:"STATSD_"`
	Redis     RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	Shutdown  time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// HubConfig holds the tick loop and match rules.
type HubConfig struct {
	TickRate         int           `yaml:"tick_rate" env:"TICK_RATE"`
	CatchupMaxTicks  int           `yaml:"catchup_max_ticks" env:"CATCHUP_MAX_TICKS"`
	CommandCapacity  int           `yaml:"command_capacity" env:"COMMAND_CAPACITY"`
	PerActorLimit    int           `yaml:"per_actor_limit" env:"PER_ACTOR_LIMIT"`
	SettlePeriod     time.Duration `yaml:"settle_period" env:"SETTLE_PERIOD"`
	MatchDuration    time.Duration `yaml:"match_duration" env:"MATCH_DURATION"`
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout" env:"HEARTBEAT_TIMEOUT"`
	SendQueueSize    int           `yaml:"send_queue_size" env:"SEND_QUEUE_SIZE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Pretty bool   `yaml:"pretty" env:"PRETTY"`
}

// EventsConfig configures the gameplay event router and its sinks.
type EventsConfig struct {
	Sinks           []string      `yaml:"sinks" env:"SINKS" envSeparator:","`
	BufferSize      int           `yaml:"buffer_size" env:"BUFFER_SIZE"`
	MinimumSeverity string        `yaml:"minimum_severity" env:"MINIMUM_SEVERITY"`
	JSONPath        string        `yaml:"json_path" env:"JSON_PATH"`
	FlushInterval   time.Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
}

// StatsdConfig enables DogStatsD metrics when Address is set.
type StatsdConfig struct {
	Address string   `yaml:"address" env:"ADDRESS"`
	Tags    []string `yaml:"tags" env:"TAGS" envSeparator:","`
}

// RedisConfig enables the broadcast mirror when Addr is set.
type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"ADDR"`
	Password   string        `yaml:"password" env:"PASSWORD"`
	DB         int           `yaml:"db" env:"DB"`
	Channel    string        `yaml:"channel" env:"CHANNEL"`
	LatestKey  string        `yaml:"latest_key" env:"LATEST_KEY"`
	BufferSize int           `yaml:"buffer_size" env:"BUFFER_SIZE"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

func DefaultConfig() Config {
	return Config{
		Addr:      ":8080",
		ClientDir: "",
		Hub: HubConfig{
			TickRate:         20,
			CatchupMaxTicks:  3,
			CommandCapacity:  1024,
			PerActorLimit:    16,
			SettlePeriod:     2 * time.Second,
			MatchDuration:    10 * time.Minute,
			HeartbeatTimeout: 6 * time.Second,
			SendQueueSize:    64,
		},
		Spawn: spawn.DefaultConfig(),
		Log:   LogConfig{Level: "info"},
		Events: EventsConfig{
			Sinks:           []string{"console"},
			BufferSize:      512,
			MinimumSeverity: "info",
			FlushInterval:   2 * time.Second,
		},
		Redis: RedisConfig{
			Channel:    "arena:broadcast",
			LatestKey:  "arena:latest",
			BufferSize: 256,
			Timeout:    time.Second,
		},
		Shutdown: 5 * time.Second,
	}
}

// Load builds the configuration. An empty path skips the YAML file; missing
// .env files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, eris.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, eris.Wrapf(err, "parse config %s", path)
		}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return cfg, eris.Wrapf(err, "load env file %s", file)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, eris.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot run.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return eris.Wrap(ErrInvalid, "addr is required")
	case c.Hub.TickRate <= 0:
		return eris.Wrapf(ErrInvalid, "tick rate must be positive, got %d", c.Hub.TickRate)
	case c.Hub.CommandCapacity <= 0:
		return eris.Wrapf(ErrInvalid, "command capacity must be positive, got %d", c.Hub.CommandCapacity)
	case c.Hub.SettlePeriod < 0:
		return eris.Wrapf(ErrInvalid, "settle period must not be negative, got %s", c.Hub.SettlePeriod)
	case c.Hub.MatchDuration <= 0:
		return eris.Wrapf(ErrInvalid, "match duration must be positive, got %s", c.Hub.MatchDuration)
	case c.Spawn.InactivityThreshold <= 0:
		return eris.Wrapf(ErrInvalid, "inactivity threshold must be positive, got %s", c.Spawn.InactivityThreshold)
	case c.Spawn.RespawnDelay < 0:
		return eris.Wrapf(ErrInvalid, "respawn delay must not be negative, got %s", c.Spawn.RespawnDelay)
	case c.Spawn.UndelayPenalty < 0:
		return eris.Wrapf(ErrInvalid, "undelay penalty must not be negative, got %s", c.Spawn.UndelayPenalty)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return eris.Wrapf(ErrInvalid, "log level %q", c.Log.Level)
	}
	for _, sink := range c.Events.Sinks {
		switch sink {
		case "console", "memory":
		case "json":
			if c.Events.JSONPath == "" {
				return eris.Wrap(ErrInvalid, "json sink needs events.json_path")
			}
		default:
			return eris.Wrapf(ErrInvalid, "unknown event sink %q", sink)
		}
	}
	return nil
}

// LoggingConfig maps the event settings onto the router configuration.
func (c EventsConfig) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = append([]string(nil), c.Sinks...)
	if c.BufferSize > 0 {
		cfg.BufferSize = c.BufferSize
	}
	if c.MinimumSeverity != "" {
		cfg.MinimumSeverity = logging.ParseSeverity(c.MinimumSeverity)
	}
	cfg.JSON.FilePath = c.JSONPath
	if c.FlushInterval > 0 {
		cfg.JSON.FlushInterval = c.FlushInterval
	}
	return cfg
}
