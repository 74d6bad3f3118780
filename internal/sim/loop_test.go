package sim

import (
	"testing"
	"time"
)

type recordingStepper struct {
	ticks    []TickContext
	commands [][]Command
}

func (s *recordingStepper) Step(ctx TickContext, commands []Command) []Transition {
	s.ticks = append(s.ticks, ctx)
	s.commands = append(s.commands, commands)
	if len(commands) == 0 {
		return nil
	}
	return []Transition{{Kind: TransitionBusyChanged, PlayerID: commands[0].ActorID}}
}

func TestLoopAdvanceDrainsCommandsInOrder(t *testing.T) {
	stepper := &recordingStepper{}
	loop := NewLoop(stepper, LoopConfig{CommandCapacity: 8}, Deps{}, LoopHooks{})

	for _, id := range []string{"a", "b", "a"} {
		if ok, reason := loop.Enqueue(Command{ActorID: id, Type: CommandInput}); !ok {
			t.Fatalf("enqueue %s rejected: %s", id, reason)
		}
	}
	if loop.Pending() != 3 {
		t.Fatalf("expected 3 pending commands, got %d", loop.Pending())
	}

	result := loop.Advance(TickContext{Tick: 4, Delta: 50 * time.Millisecond})
	if result.Tick != 4 || result.Delta != 50*time.Millisecond {
		t.Fatalf("unexpected result tick context: %+v", result)
	}
	if len(result.Commands) != 3 || result.Commands[0].ActorID != "a" || result.Commands[1].ActorID != "b" {
		t.Fatalf("unexpected command order: %+v", result.Commands)
	}
	if len(result.Transitions) != 1 || result.Transitions[0].PlayerID != "a" {
		t.Fatalf("expected stepper transitions to be returned, got %+v", result.Transitions)
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected queue to be drained")
	}

	empty := loop.Advance(TickContext{Tick: 5})
	if len(empty.Commands) != 0 || len(stepper.ticks) != 2 {
		t.Fatalf("expected an empty tick to still step, got %+v", empty)
	}
}

func TestLoopEnqueueEnforcesPerActorLimit(t *testing.T) {
	var dropped []string
	metrics := newRecordingMetrics()
	loop := NewLoop(&recordingStepper{}, LoopConfig{CommandCapacity: 8, PerActorLimit: 2}, Deps{Metrics: metrics}, LoopHooks{
		OnCommandDrop: func(reason string, cmd Command) { dropped = append(dropped, reason+":"+cmd.ActorID) },
	})

	loop.Enqueue(Command{ActorID: "a"})
	loop.Enqueue(Command{ActorID: "a"})
	ok, reason := loop.Enqueue(Command{ActorID: "a"})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected queue limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "b"}); !ok {
		t.Fatalf("expected other actors to be unaffected")
	}
	if len(dropped) != 1 || dropped[0] != "queue_limit:a" {
		t.Fatalf("unexpected drop hook calls: %v", dropped)
	}
	if metrics.adds["sim.command_dropped.queue_limit"] != 1 {
		t.Fatalf("expected drop metric, got %v", metrics.adds)
	}

	loop.Advance(TickContext{Tick: 1})
	if ok, _ := loop.Enqueue(Command{ActorID: "a"}); !ok {
		t.Fatalf("expected per-actor budget to reset after a tick")
	}
}

func TestLoopEnqueueReportsFullQueue(t *testing.T) {
	loop := NewLoop(&recordingStepper{}, LoopConfig{CommandCapacity: 1}, Deps{}, LoopHooks{})
	loop.Enqueue(Command{ActorID: "a"})
	ok, reason := loop.Enqueue(Command{ActorID: "b"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected queue full rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestLoopWarnsAtQueueSteps(t *testing.T) {
	var warnings []int
	loop := NewLoop(&recordingStepper{}, LoopConfig{CommandCapacity: 16, WarningStep: 2}, Deps{}, LoopHooks{
		OnQueueWarning: func(length int) { warnings = append(warnings, length) },
	})
	for i := 0; i < 5; i++ {
		loop.Enqueue(Command{})
	}
	if len(warnings) != 2 || warnings[0] != 2 || warnings[1] != 4 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestLoopRunStopsAndReportsSteps(t *testing.T) {
	steps := make(chan StepResult, 16)
	loop := NewLoop(&recordingStepper{}, LoopConfig{TickRate: 200, CatchupMaxTicks: 2}, Deps{}, LoopHooks{
		AfterStep: func(result StepResult) {
			select {
			case steps <- result:
			default:
			}
		},
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	first := <-steps
	second := <-steps
	close(stop)
	<-done

	if first.Tick != 1 || second.Tick != 2 {
		t.Fatalf("expected sequential ticks, got %d and %d", first.Tick, second.Tick)
	}
	if first.Budget != 5*time.Millisecond {
		t.Fatalf("unexpected budget %v", first.Budget)
	}
	if first.Delta <= 0 || first.Delta > first.MaxDelta {
		t.Fatalf("delta %v outside (0, %v]", first.Delta, first.MaxDelta)
	}
}

func TestNewLoopRequiresStepper(t *testing.T) {
	if NewLoop(nil, LoopConfig{}, Deps{}, LoopHooks{}) != nil {
		t.Fatalf("expected nil loop without a stepper")
	}
	var loop *Loop
	if ok, reason := loop.Enqueue(Command{}); ok || reason != CommandRejectQueueFull {
		t.Fatalf("nil loop should reject commands")
	}
}
