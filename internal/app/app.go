package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	server "arena/server"
	"arena/server/internal/config"
	servernet "arena/server/internal/net"
	"arena/server/internal/replication"
	"arena/server/internal/replication/redismirror"
	"arena/server/internal/telemetry"
	"arena/server/logging"
	loggingSinks "arena/server/logging/sinks"
)

// App owns every long-lived component of a running server.
type App struct {
	cfg     config.Config
	logger  zerolog.Logger
	hub     *server.Hub
	router  *logging.Router
	handler http.Handler

	counters *telemetry.Counters
	statsd   *telemetry.StatsdMetrics
	redis    redis.UniversalClient
	mirror   *redismirror.Mirror
	closers  []io.Closer
}

// NewLogger builds the operational logger.
func NewLogger(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// New wires the hub and its infrastructure. Nothing runs until Run.
func New(cfg config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, counters: telemetry.NewCounters()}

	statsd, err := telemetry.NewStatsdMetrics(cfg.Statsd.Address, cfg.Statsd.Tags, logger)
	if err != nil {
		return nil, err
	}
	a.statsd = statsd
	metrics := telemetry.Fanout(a.counters, statsd)

	sinks, err := a.buildSinks(cfg.Events)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	a.router = logging.NewRouter(cfg.Events.LoggingConfig(), logging.SystemClock{}, logger, sinks)

	var observers []replication.Observer
	if cfg.Redis.Addr != "" {
		mirror, err := a.connectMirror(cfg.Redis)
		if err != nil {
			a.closeResources()
			return nil, err
		}
		observers = append(observers, mirror)
	}

	hubCfg := server.DefaultHubConfig()
	hubCfg.TickRate = cfg.Hub.TickRate
	hubCfg.CatchupMaxTicks = cfg.Hub.CatchupMaxTicks
	hubCfg.CommandCapacity = cfg.Hub.CommandCapacity
	hubCfg.PerActorLimit = cfg.Hub.PerActorLimit
	hubCfg.SettlePeriod = cfg.Hub.SettlePeriod
	hubCfg.MatchDuration = cfg.Hub.MatchDuration
	hubCfg.HeartbeatTimeout = cfg.Hub.HeartbeatTimeout
	hubCfg.SendQueueSize = cfg.Hub.SendQueueSize
	hubCfg.Spawn = cfg.Spawn
	hubCfg.Logger = logger
	hubCfg.Metrics = metrics
	hubCfg.Observers = observers

	a.hub = server.NewHubWithConfig(hubCfg, a.router)
	a.handler = servernet.NewHTTPHandler(a.hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
		Router:    a.router,
	})
	return a, nil
}

func (a *App) Hub() *server.Hub {
	return a.hub
}

// Router is the gameplay event router.
func (a *App) Router() *logging.Router {
	return a.router
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Metrics reports the in-process counters mirrored to statsd.
func (a *App) Metrics() map[string]uint64 {
	return a.counters.Snapshot()
}

func (a *App) Mirror() *redismirror.Mirror {
	return a.mirror
}

func (a *App) buildSinks(cfg config.EventsConfig) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	for _, name := range cfg.Sinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewConsoleSink(os.Stdout, logging.ConsoleConfig{Pretty: a.cfg.Log.Pretty}),
			})
		case "memory":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemorySink()})
		case "json":
			file, err := os.OpenFile(cfg.JSONPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, eris.Wrapf(err, "open event log %s", cfg.JSONPath)
			}
			a.closers = append(a.closers, file)
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(file, cfg.FlushInterval)})
		}
	}
	return sinks, nil
}

func (a *App) connectMirror(cfg config.RedisConfig) (*redismirror.Mirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), max(cfg.Timeout, time.Second))
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, eris.Wrapf(err, "connect redis %s", cfg.Addr)
	}
	mirror, err := redismirror.New(client, redismirror.Config{
		Channel:    cfg.Channel,
		LatestKey:  cfg.LatestKey,
		BufferSize: cfg.BufferSize,
		Timeout:    cfg.Timeout,
	}, a.logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.redis = client
	a.mirror = mirror
	return mirror, nil
}

// Run serves HTTP on listener and ticks the hub until ctx is cancelled, then
// shuts everything down.
func (a *App) Run(ctx context.Context, listener net.Listener) error {
	stop := make(chan struct{})
	go a.hub.RunSimulation(stop)

	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	a.logger.Info().Str("addr", listener.Addr().String()).Msg("server listening")

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = eris.Wrap(err, "http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	close(stop)
	if err := a.Close(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Close flushes and releases infrastructure. The hub itself holds nothing
// that needs closing.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.mirror != nil {
		if err := a.mirror.Close(ctx); err != nil {
			firstErr = err
		}
	}
	if a.router != nil {
		if err := a.router.Close(ctx); err != nil && firstErr == nil {
			firstErr = eris.Wrap(err, "close event router")
		}
	}
	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *App) closeResources() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.redis = nil
	}
	if a.statsd != nil {
		if err := a.statsd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.statsd = nil
	}
	return firstErr
}

// Run loads configuration, listens on the configured address and serves
// until ctx is cancelled.
func Run(ctx context.Context, configPath string, envFiles ...string) error {
	cfg, err := config.Load(configPath, envFiles...)
	if err != nil {
		return err
	}
	logger := NewLogger(cfg.Log, os.Stdout)

	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		a.Close(ctx)
		return eris.Wrapf(err, "listen on %s", cfg.Addr)
	}
	return a.Run(ctx, listener)
}
