package sinks

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"arena/server/logging"
)

// JSON emits newline-delimited structured events.
type JSON struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	encoder   *json.Encoder
	autoFlush bool
	done      chan struct{}
	closeOnce sync.Once
}

type jsonRecord struct {
	Type     logging.EventType `json:"type"`
	Tick     uint64            `json:"tick"`
	Time     string            `json:"time"`
	Severity string            `json:"severity"`
	Category string            `json:"category,omitempty"`
	Actor    logging.EntityRef `json:"actor"`
	Payload  any               `json:"payload,omitempty"`
	Extra    map[string]any    `json:"extra,omitempty"`
	TraceID  string            `json:"traceId,omitempty"`
}

// NewJSON writes to w. A positive flushInterval batches writes and flushes on
// a timer; otherwise every event is flushed immediately.
func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		autoFlush: flushInterval <= 0,
		done:      make(chan struct{}),
	}
	if flushInterval > 0 {
		go sink.periodicFlush(flushInterval)
	}
	return sink
}

func (s *JSON) Write(event logging.Event) error {
	record := jsonRecord{
		Type:     event.Type,
		Tick:     event.Tick,
		Time:     event.Time.Format(time.RFC3339Nano),
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    event.Actor,
		Payload:  event.Payload,
		Extra:    event.Extra,
		TraceID:  event.TraceID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(record); err != nil {
		return err
	}
	if s.autoFlush {
		return s.writer.Flush()
	}
	return nil
}

func (s *JSON) Close(context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Flush()
}

func (s *JSON) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			_ = s.writer.Flush()
			s.mu.Unlock()
		}
	}
}
