package sim

import (
	"sync"
	"time"

	"arena/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// TickContext describes the tick being executed.
type TickContext struct {
	Tick  uint64
	Now   time.Time
	Delta time.Duration
}

// Stepper advances authoritative state by one tick using the commands staged
// since the previous tick, and returns the transitions it produced.
type Stepper interface {
	Step(ctx TickContext, commands []Command) []Transition
}

// StepResult summarises one executed tick for the AfterStep hook.
type StepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        time.Duration
	Commands     []Command
	Transitions  []Transition
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     time.Duration
}

// LoopHooks lets the owner observe the loop without the loop knowing about it.
type LoopHooks struct {
	NextTick       func() uint64
	Prepare        func(TickContext)
	AfterStep      func(StepResult)
	OnQueueWarning func(length int)
	OnCommandDrop  func(reason string, cmd Command)
}

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// Loop coordinates command ingestion and the fixed-timestep simulation runner.
type Loop struct {
	stepper Stepper
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	deps    Deps
	tick    uint64

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps the stepper with a ring-buffer queue and a ticker.
func NewLoop(stepper Stepper, cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if stepper == nil {
		return nil
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	var metrics counterSink
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}
	return &Loop{
		stepper:       stepper,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, metrics),
		hooks:         hooks,
		config:        cfg,
		deps:          deps,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	warnAt := 0
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
			if cmd.ActorID != "" && l.perActorCount[cmd.ActorID] > 0 {
				l.perActorCount[cmd.ActorID]--
			}
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				warnAt = length
			}
		}
	}
	l.queueMu.Unlock()

	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	if warnAt > 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(warnAt)
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx TickContext) StepResult {
	if l == nil {
		return StepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	transitions := l.stepper.Step(ctx, commands)
	return StepResult{
		Tick:        ctx.Tick,
		Now:         ctx.Now,
		Delta:       ctx.Delta,
		Commands:    commands,
		Transitions: transitions,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes. Wall-clock
// gaps longer than CatchupMaxTicks budgets are clamped so a stalled process
// does not expire every timer at once.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = 15
	}
	budget := time.Second / time.Duration(tickRate)
	maxDelta := budget
	if l.config.CatchupMaxTicks > 1 {
		maxDelta = budget * time.Duration(l.config.CatchupMaxTicks)
	}
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	clock := l.deps.Clock
	last := clock.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			delta := now.Sub(last)
			clamped := false
			if delta <= 0 {
				delta = budget
			} else if delta > maxDelta {
				delta = maxDelta
				clamped = true
			}
			last = now

			start := clock.Now()
			result := l.Advance(TickContext{Tick: l.nextTick(), Now: now, Delta: delta})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budget
			result.ClampedDelta = clamped
			result.MaxDelta = maxDelta

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) nextTick() uint64 {
	if l.hooks.NextTick != nil {
		return l.hooks.NextTick()
	}
	l.tick++
	return l.tick
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if l.deps.Metrics != nil {
		l.deps.Metrics.Add("sim.command_dropped."+reason, 1)
	}
	// Log on powers of two so a flooding client cannot flood the log too.
	if count > 0 && count&(count-1) == 0 && l.deps.Logger != nil {
		l.deps.Logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}
