package sim

import "sync"

const (
	commandQueueDepthMetricKey    = "sim.command_queue.depth"
	commandQueueOverflowMetricKey = "sim.command_queue.overflow"
)

// CommandBuffer stores staged commands in a fixed-size ring. Connection
// goroutines push concurrently; only the tick goroutine drains.
type CommandBuffer struct {
	mu      sync.Mutex
	ring    []Command
	head    int
	size    int
	metrics counterSink
}

type counterSink interface {
	Add(string, uint64)
	Store(string, uint64)
}

// NewCommandBuffer constructs a ring buffer with the provided capacity.
func NewCommandBuffer(capacity int, metrics counterSink) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{ring: make([]Command, capacity), metrics: metrics}
}

// Capacity reports the maximum number of commands the buffer can hold.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.ring)
}

// Push stages a command, returning false if the buffer is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.ring) {
		if b.metrics != nil {
			b.metrics.Add(commandQueueOverflowMetricKey, 1)
		}
		return false
	}
	b.ring[(b.head+b.size)%len(b.ring)] = cmd
	b.size++
	b.reportDepthLocked()
	return true
}

// Drain returns all staged commands in FIFO order and empties the buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return nil
	}
	out := make([]Command, b.size)
	for i := range out {
		slot := (b.head + i) % len(b.ring)
		out[i] = b.ring[slot]
		b.ring[slot] = Command{}
	}
	b.head = 0
	b.size = 0
	b.reportDepthLocked()
	return out
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *CommandBuffer) reportDepthLocked() {
	if b.metrics != nil {
		b.metrics.Store(commandQueueDepthMetricKey, uint64(b.size))
	}
}
