// Package redismirror republishes broadcast replication messages on a Redis
// channel so relays and spectators can follow a match without a websocket
// slot. The latest message of each type is also kept in a hash for late
// subscribers.
package redismirror

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"arena/server/internal/replication"
)

type Config struct {
	Channel    string
	LatestKey  string
	BufferSize int
	Timeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Channel:    "arena:broadcast",
		LatestKey:  "arena:latest",
		BufferSize: 256,
		Timeout:    time.Second,
	}
}

type envelope struct {
	Type    string
	Payload []byte
}

// Mirror is a replication.Observer. Observe never blocks; a background worker
// talks to Redis and messages are dropped when it falls behind.
type Mirror struct {
	client  redis.UniversalClient
	cfg     Config
	logger  zerolog.Logger
	queue   chan envelope
	done    chan struct{}
	wg      sync.WaitGroup
	closeMu sync.Once

	mu      sync.Mutex
	dropped uint64
}

func New(client redis.UniversalClient, cfg Config, logger zerolog.Logger) (*Mirror, error) {
	if client == nil {
		return nil, eris.New("redis mirror requires a client")
	}
	defaults := DefaultConfig()
	if cfg.Channel == "" {
		cfg.Channel = defaults.Channel
	}
	if cfg.LatestKey == "" {
		cfg.LatestKey = defaults.LatestKey
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	m := &Mirror{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "redismirror").Str("channel", cfg.Channel).Logger(),
		queue:  make(chan envelope, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

// Observe encodes the message and hands it to the worker.
func (m *Mirror) Observe(msg replication.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error().Err(err).Str("type", msg.MessageType()).Msg("encode failed")
		return
	}
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.queue <- envelope{Type: msg.MessageType(), Payload: payload}:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
	}
}

// Dropped reports how many messages were discarded because the worker was
// behind.
func (m *Mirror) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *Mirror) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			for {
				select {
				case env := <-m.queue:
					m.publish(env)
				default:
					return
				}
			}
		case env := <-m.queue:
			m.publish(env)
		}
	}
}

func (m *Mirror) publish(env envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()
	pipe := m.client.Pipeline()
	pipe.HSet(ctx, m.cfg.LatestKey, env.Type, env.Payload)
	pipe.Publish(ctx, m.cfg.Channel, env.Payload)
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn().Err(eris.Wrap(err, "publish broadcast")).Str("type", env.Type).Msg("mirror publish failed")
	}
}

// Close flushes queued messages and stops the worker. The Redis client is
// owned by the caller.
func (m *Mirror) Close(ctx context.Context) error {
	m.closeMu.Do(func() { close(m.done) })
	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "redis mirror close")
	}
}
