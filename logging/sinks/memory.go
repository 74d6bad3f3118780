package sinks

import (
	"context"
	"sync"

	"arena/server/logging"
)

// MemorySink keeps every event in memory. Tests read it back through Events.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.Clone())
	return nil
}

func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

// Types lists the recorded event types in arrival order.
func (s *MemorySink) Types() []logging.EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]logging.EventType, len(s.events))
	for i, event := range s.events {
		types[i] = event.Type
	}
	return types
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
