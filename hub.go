package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arena/server/internal/avatar"
	"arena/server/internal/matchclock"
	"arena/server/internal/replication"
	"arena/server/internal/roster"
	"arena/server/internal/session"
	"arena/server/internal/sim"
	"arena/server/internal/spawn"
	"arena/server/internal/suspension"
	"arena/server/internal/telemetry"
	"arena/server/logging"
	"arena/server/logging/lifecycle"
	spawnlog "arena/server/logging/spawn"
	suspensionlog "arena/server/logging/suspension"
)

type connState struct {
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// Hub owns the roster and every activity state machine. Connection
// goroutines call into it to join, leave and stage commands; everything else
// happens inside Step on the tick goroutine.
type Hub struct {
	mu        sync.Mutex
	cfg       HubConfig
	logger    zerolog.Logger
	publisher logging.Publisher
	clock     logging.Clock
	telemetry *telemetryCounters

	players     *roster.Roster
	avatars     *avatar.Registry
	scheduler   *spawn.Scheduler
	coordinator *suspension.Coordinator
	matchClock  *matchclock.Clock
	replicator  *replication.Replicator
	subscribers *subscriberSet
	loop        *sim.Loop

	conns   map[string]*connState
	matchID string
	tick    atomic.Uint64
	nextID  atomic.Uint64
}

// NewHub creates a hub with the default configuration and no event sinks.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig(), nil)
}

// NewHubWithConfig creates a hub. Zero-valued tuning fields fall back to
// their defaults.
func NewHubWithConfig(cfg HubConfig, pub logging.Publisher) *Hub {
	cfg = withDefaults(cfg)
	if pub == nil {
		pub = logging.NopPublisher()
	}
	logger := cfg.Logger.With().Str("component", "hub").Logger()

	matchClock := matchclock.New(cfg.MatchDuration)
	avatars := avatar.NewRegistry()
	h := &Hub{
		cfg:         cfg,
		logger:      logger,
		publisher:   pub,
		clock:       cfg.Clock,
		telemetry:   newTelemetryCounters(cfg.Metrics),
		players:     roster.New(),
		avatars:     avatars,
		scheduler:   spawn.NewScheduler(cfg.Spawn, avatars),
		coordinator: suspension.NewCoordinator(cfg.SettlePeriod, matchClock),
		matchClock:  matchClock,
		subscribers: newSubscriberSet(cfg.SendQueueSize, logger),
		conns:       make(map[string]*connState),
		matchID:     uuid.NewString(),
	}

	var transport replication.Transport = h.subscribers
	if cfg.Transport != nil {
		transport = cfg.Transport
	}
	h.replicator = replication.NewReplicator(transport, cfg.Logger, cfg.Metrics, cfg.Observers...)

	h.loop = sim.NewLoop(h, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: cfg.CatchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerActorLimit,
		WarningStep:     cfg.WarningStep,
	}, sim.Deps{
		Logger:  telemetry.WrapZerolog(logger),
		Metrics: cfg.Metrics,
		Clock:   cfg.Clock,
	}, sim.LoopHooks{
		NextTick:  h.nextTick,
		AfterStep: h.afterStep,
		OnQueueWarning: func(length int) {
			h.telemetry.RecordQueueWarning()
			h.logger.Warn().Int("length", length).Msg("command queue growing")
		},
		OnCommandDrop: func(reason string, _ sim.Command) {
			h.telemetry.RecordCommandDrop(reason)
		},
	})
	return h
}

func withDefaults(cfg HubConfig) HubConfig {
	defaults := DefaultHubConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaults.TickRate
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = defaults.CommandCapacity
	}
	if cfg.Spawn == (spawn.Config{}) {
		cfg.Spawn = defaults.Spawn
	}
	if cfg.SettlePeriod < 0 {
		cfg.SettlePeriod = 0
	}
	if cfg.MatchDuration <= 0 {
		cfg.MatchDuration = defaults.MatchDuration
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaults.SendQueueSize
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}
	return cfg
}

// Join registers a new player session. The player spawns on the next tick.
func (h *Hub) Join() JoinResponse {
	playerID := fmt.Sprintf("player-%d", h.nextID.Add(1))
	now := h.clock.Now()

	h.mu.Lock()
	sess := h.players.Add(playerID)
	h.conns[playerID] = &connState{lastHeartbeat: now}
	total := h.players.Len()
	matchID := h.matchID
	h.mu.Unlock()

	lifecycle.PlayerJoined(
		context.Background(),
		h.publisher,
		h.tick.Load(),
		logging.PlayerRef(playerID),
		lifecycle.PlayerJoinedPayload{Handle: sess.Handle.String(), Players: total},
		map[string]any{"match": matchID},
	)

	spawnCfg := h.scheduler.Config()
	return JoinResponse{
		Ver:     ProtocolVersion,
		ID:      playerID,
		MatchID: matchID,
		Config: JoinConfig{
			TickRate:              h.cfg.TickRate,
			InactivityThresholdMs: spawnCfg.InactivityThreshold.Milliseconds(),
			RespawnDelayMs:        spawnCfg.RespawnDelay.Milliseconds(),
			UndelayPenaltyMs:      spawnCfg.UndelayPenalty.Milliseconds(),
			SettlePeriodMs:        h.cfg.SettlePeriod.Milliseconds(),
			HeartbeatIntervalMs:   heartbeatInterval.Milliseconds(),
		},
	}
}

// Subscribe associates a connection with an existing player and sends it a
// welcome that restates the whole activity state. A previous connection for
// the same player is closed.
func (h *Hub) Subscribe(playerID string, conn Conn) (*Subscriber, bool) {
	h.mu.Lock()
	if _, ok := h.players.Lookup(playerID); !ok {
		h.mu.Unlock()
		return nil, false
	}
	if state, ok := h.conns[playerID]; ok {
		state.lastHeartbeat = h.clock.Now()
	}
	sub, previous := h.subscribers.attach(playerID, conn)
	h.replicator.SendTo(playerID, h.welcomeLocked(playerID))
	h.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return sub, true
}

// Disconnect removes a player. When sub is given the player is only removed
// if sub is still its active connection, so a replaced socket closing late
// does not evict the player.
func (h *Hub) Disconnect(playerID string, sub *Subscriber, reason string) bool {
	current := h.subscribers.detach(playerID, sub)
	if sub != nil && current == nil {
		sub.Close()
		return false
	}
	if current != nil {
		current.Close()
	}

	h.mu.Lock()
	removed := h.removeLocked(playerID)
	total := h.players.Len()
	h.mu.Unlock()

	if removed {
		h.publishDisconnect(playerID, reason, total)
	}
	return removed
}

// Enqueue stages a client command for the next tick.
func (h *Hub) Enqueue(playerID string, cmd sim.Command) (sim.Command, bool, string) {
	h.mu.Lock()
	_, known := h.players.Lookup(playerID)
	h.mu.Unlock()
	if !known {
		return sim.Command{}, false, CommandRejectUnknownActor
	}

	cmd.ActorID = playerID
	cmd.OriginTick = h.tick.Load()
	cmd.IssuedAt = h.clock.Now()
	if ok, reason := h.loop.Enqueue(cmd); !ok {
		return sim.Command{}, false, reason
	}
	return cmd, true, ""
}

// UpdateHeartbeat records the most recent heartbeat time and RTT for a player.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.conns[playerID]
	if !ok {
		return 0, false
	}
	state.lastHeartbeat = receivedAt
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			state.lastRTT = max(receivedAt.Sub(clientTime), 0)
		}
	}
	return state.lastRTT, true
}

// Step runs one tick: timers, staged commands, spawns, suspension, the match
// clock and finally replication. It implements sim.Stepper.
func (h *Hub) Step(ctx sim.TickContext, commands []sim.Command) []sim.Transition {
	h.mu.Lock()
	out := h.scheduler.AdvanceAll(h.players, ctx.Delta)
	for _, cmd := range commands {
		out = append(out, h.applyCommandLocked(cmd)...)
	}
	stale := h.expireHeartbeatsLocked(ctx.Now)
	out = append(out, h.scheduler.SpawnAll(h.players)...)
	out = append(out, h.coordinator.Evaluate(h.players, ctx.Delta)...)
	if h.matchClock.Tick(ctx.Delta) {
		out = append(out, h.endMatchLocked()...)
	}
	h.replicator.Emit(h.players, out)

	total := h.players.Len()
	h.telemetry.RecordPopulation(total, h.players.ActiveCount(), h.avatars.Live())
	matchID := h.matchID
	h.mu.Unlock()

	for _, playerID := range stale {
		if sub := h.subscribers.detach(playerID, nil); sub != nil {
			sub.Close()
		}
		h.telemetry.RecordHeartbeatTimeout()
		h.publishDisconnect(playerID, DisconnectReasonHeartbeat, total)
	}
	h.publishTransitions(ctx.Tick, matchID, total, out)
	h.telemetry.RecordStep(len(commands), len(out))
	return out
}

// Advance runs a single tick immediately with the given delta.
func (h *Hub) Advance(delta time.Duration) sim.StepResult {
	return h.loop.Advance(sim.TickContext{Tick: h.nextTick(), Now: h.clock.Now(), Delta: delta})
}

// RunSimulation drives the tick loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	h.loop.Run(stop)
}

func (h *Hub) MatchID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.matchID
}

func (h *Hub) Tick() uint64 {
	return h.tick.Load()
}

// DiagnosticsSnapshot reports per-session flags, the suspension state and
// the match clock.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]DiagnosticsPlayer, 0, h.players.Len())
	for _, snap := range h.players.Snapshot() {
		entry := DiagnosticsPlayer{Snapshot: snap}
		if state, ok := h.conns[snap.PlayerID]; ok {
			entry.LastHeartbeat = state.lastHeartbeat.UnixMilli()
			entry.RTTMillis = state.lastRTT.Milliseconds()
		}
		_, entry.Connected = h.subscribers.get(snap.PlayerID)
		players = append(players, entry)
	}
	return Diagnostics{
		Ver:              ProtocolVersion,
		MatchID:          h.matchID,
		Tick:             h.tick.Load(),
		Suspension:       h.coordinator.Snapshot(),
		ClockRemainingMs: h.matchClock.Remaining().Milliseconds(),
		ClockFrozen:      h.matchClock.Frozen(),
		PendingCommands:  h.loop.Pending(),
		LiveAvatars:      h.avatars.Live(),
		Players:          players,
		Telemetry:        h.telemetry.Snapshot(),
	}
}

func (h *Hub) nextTick() uint64 {
	return h.tick.Add(1)
}

func (h *Hub) afterStep(result sim.StepResult) {
	h.telemetry.RecordTick(result.Duration, result.Budget, result.ClampedDelta)
	if result.ClampedDelta {
		h.logger.Debug().Uint64("tick", result.Tick).Dur("max_delta", result.MaxDelta).Msg("tick delta clamped")
	}
}

func (h *Hub) applyCommandLocked(cmd sim.Command) []sim.Transition {
	sess, ok := h.players.Lookup(cmd.ActorID)
	if !ok {
		return nil
	}
	switch cmd.Type {
	case sim.CommandInput:
		sess.Inactivity.RecordInput()
		return nil
	case sim.CommandRequestIdle:
		return h.scheduler.RequestIdle(sess)
	case sim.CommandRequestUndelay:
		return h.scheduler.RequestUndelay(sess)
	case sim.CommandRequestServerSuspend:
		if cmd.Suspend == nil {
			return nil
		}
		return h.coordinator.RequestServerSuspend(h.players, sess, cmd.Suspend.Suspend, h.scheduler)
	case sim.CommandAvatarDestroyed:
		return h.scheduler.AvatarDestroyed(sess)
	default:
		return nil
	}
}

func (h *Hub) removeLocked(playerID string) bool {
	sess, ok := h.players.Lookup(playerID)
	if !ok {
		return false
	}
	h.scheduler.Release(sess)
	h.players.Remove(sess.Handle)
	delete(h.conns, playerID)
	return true
}

func (h *Hub) expireHeartbeatsLocked(now time.Time) []string {
	timeout := h.cfg.HeartbeatTimeout
	if timeout <= 0 {
		return nil
	}
	var stale []string
	for playerID, state := range h.conns {
		if now.Sub(state.lastHeartbeat) > timeout {
			stale = append(stale, playerID)
		}
	}
	for _, playerID := range stale {
		h.removeLocked(playerID)
	}
	return stale
}

// endMatchLocked starts a fresh match: new identifier, full clock, no
// suspension and no outstanding penalties.
func (h *Hub) endMatchLocked() []sim.Transition {
	previous := h.matchID
	h.matchID = uuid.NewString()
	h.matchClock.Reset()
	h.coordinator.Reset()
	out := []sim.Transition{{
		Kind:    sim.TransitionMatchEnded,
		Payload: sim.MatchPayload{MatchID: previous, NextID: h.matchID},
	}}
	h.players.ForEach(func(sess *session.Session) {
		out = append(out, h.scheduler.ClearPenalty(sess)...)
	})
	return out
}

func (h *Hub) welcomeLocked(playerID string) replication.Welcome {
	welcome := replication.Welcome{
		Ver:         replication.Version,
		Type:        replication.TypeWelcome,
		ID:          playerID,
		MatchID:     h.matchID,
		Suspending:  h.coordinator.State() == suspension.CoolingDown,
		Suspended:   h.coordinator.State() == suspension.Suspended,
		RemainingMs: h.matchClock.Remaining().Milliseconds(),
	}
	h.players.ForEach(func(sess *session.Session) {
		welcome.Players = append(welcome.Players, replication.PlayerStatus{
			ID:      sess.PlayerID,
			Delayed: sess.SpawnDelayed,
			Busy:    sess.Busy,
		})
		if sess.PlayerID == playerID {
			welcome.Delayed = sess.SpawnDelayed
			welcome.PenaltyRemainingMs = sess.Penalty.Remaining().Milliseconds()
		}
	})
	return welcome
}

func (h *Hub) publishDisconnect(playerID, reason string, total int) {
	lifecycle.PlayerDisconnected(
		context.Background(),
		h.publisher,
		h.tick.Load(),
		logging.PlayerRef(playerID),
		lifecycle.PlayerDisconnectedPayload{Reason: reason, Players: total},
		nil,
	)
}

func (h *Hub) publishTransitions(tick uint64, matchID string, players int, transitions []sim.Transition) {
	ctx := context.Background()
	match := logging.MatchRef(matchID)
	for _, t := range transitions {
		h.telemetry.RecordTransition(string(t.Kind))
		actor := logging.PlayerRef(t.PlayerID)
		switch t.Kind {
		case sim.TransitionSpawnDelayed:
			payload, _ := t.Payload.(sim.SpawnDelayedPayload)
			spawnlog.Delayed(ctx, h.publisher, tick, actor, spawnlog.DelayedPayload{
				Cause:            payload.Cause,
				InitialPenaltyMs: payload.PenaltyEstimate.Milliseconds(),
			})
		case sim.TransitionSpawnUndelayed:
			spawnlog.Undelayed(ctx, h.publisher, tick, actor)
		case sim.TransitionBusyChanged:
			payload, _ := t.Payload.(sim.BusyPayload)
			spawnlog.BusyChanged(ctx, h.publisher, tick, actor, spawnlog.BusyPayload{Busy: payload.Busy})
		case sim.TransitionPenaltyStarted:
			payload, _ := t.Payload.(sim.PenaltyPayload)
			spawnlog.PenaltyStarted(ctx, h.publisher, tick, actor, spawnlog.PenaltyPayload{RemainingMs: payload.Remaining.Milliseconds()})
		case sim.TransitionAvatarSpawned:
			payload, _ := t.Payload.(sim.AvatarPayload)
			spawnlog.AvatarSpawned(ctx, h.publisher, tick, actor, spawnlog.AvatarPayload{Avatar: payload.Avatar})
		case sim.TransitionAvatarLost:
			payload, _ := t.Payload.(sim.AvatarPayload)
			spawnlog.AvatarDestroyed(ctx, h.publisher, tick, actor, spawnlog.AvatarPayload{Avatar: payload.Avatar})
		case sim.TransitionGameSuspending:
			payload, _ := t.Payload.(sim.SettlePayload)
			suspensionlog.CoolingDown(ctx, h.publisher, tick, match, suspensionlog.CoolingDownPayload{SettleMs: payload.Settle.Milliseconds()})
		case sim.TransitionGameSuspended:
			payload, _ := t.Payload.(sim.ClockPayload)
			suspensionlog.Suspended(ctx, h.publisher, tick, match, suspensionlog.ClockPayload{RemainingMs: payload.Remaining.Milliseconds(), Players: players})
		case sim.TransitionGameResumed:
			payload, _ := t.Payload.(sim.ClockPayload)
			suspensionlog.Resumed(ctx, h.publisher, tick, match, suspensionlog.ClockPayload{RemainingMs: payload.Remaining.Milliseconds(), Players: players})
		case sim.TransitionMatchEnded:
			payload, _ := t.Payload.(sim.MatchPayload)
			suspensionlog.MatchEnded(ctx, h.publisher, tick, logging.MatchRef(payload.MatchID))
		}
	}
}
