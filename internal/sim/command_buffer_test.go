package sim

import "testing"

type recordingMetrics struct {
	adds   map[string]uint64
	stores map[string]uint64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{adds: map[string]uint64{}, stores: map[string]uint64{}}
}

func (m *recordingMetrics) Add(key string, delta uint64)   { m.adds[key] += delta }
func (m *recordingMetrics) Store(key string, value uint64) { m.stores[key] = value }

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	for _, id := range []string{"a", "b", "c"} {
		if !buffer.Push(Command{ActorID: id}) {
			t.Fatalf("expected push to succeed for %s", id)
		}
	}
	if buffer.Push(Command{ActorID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	if drained := buffer.Drain(); len(drained) != 3 || drained[0].ActorID != "a" || drained[2].ActorID != "c" {
		t.Fatalf("unexpected drain order: %+v", drained)
	}

	buffer.Push(Command{ActorID: "d"})
	buffer.Push(Command{ActorID: "e"})
	wrapped := buffer.Drain()
	if len(wrapped) != 2 || wrapped[0].ActorID != "d" || wrapped[1].ActorID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
	if buffer.Drain() != nil {
		t.Fatalf("expected empty drain to return nil")
	}
}

func TestCommandBufferReportsDepthAndOverflow(t *testing.T) {
	metrics := newRecordingMetrics()
	buffer := NewCommandBuffer(1, metrics)
	buffer.Push(Command{ActorID: "one"})
	if metrics.stores[commandQueueDepthMetricKey] != 1 {
		t.Fatalf("expected depth 1, got %d", metrics.stores[commandQueueDepthMetricKey])
	}
	buffer.Push(Command{ActorID: "two"})
	if metrics.adds[commandQueueOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow, got %d", metrics.adds[commandQueueOverflowMetricKey])
	}
	buffer.Drain()
	if metrics.stores[commandQueueDepthMetricKey] != 0 {
		t.Fatalf("expected depth reset after drain")
	}
}

func TestCommandBufferMinimumCapacity(t *testing.T) {
	if got := NewCommandBuffer(0, nil).Capacity(); got != 1 {
		t.Fatalf("expected capacity clamp to 1, got %d", got)
	}
}
