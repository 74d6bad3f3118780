package sinks

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"arena/server/logging"
)

// ConsoleSink renders gameplay events through zerolog. Pretty output uses the
// human friendly console writer; otherwise each event is one JSON line.
type ConsoleSink struct {
	logger zerolog.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	if w == nil {
		w = io.Discard
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return &ConsoleSink{logger: zerolog.New(w)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	entry := s.logger.WithLevel(levelFor(event.Severity)).
		Time("time", event.Time).
		Str("event", string(event.Type)).
		Uint64("tick", event.Tick).
		Str("actor", formatEntity(event.Actor))
	if event.Category != "" {
		entry = entry.Str("category", event.Category)
	}
	if event.TraceID != "" {
		entry = entry.Str("trace_id", event.TraceID)
	}
	if event.Payload != nil {
		entry = entry.Interface("payload", event.Payload)
	}
	if len(event.Extra) > 0 {
		entry = entry.Fields(event.Extra)
	}
	entry.Send()
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func levelFor(sev logging.Severity) zerolog.Level {
	switch sev {
	case logging.SeverityDebug:
		return zerolog.DebugLevel
	case logging.SeverityWarn:
		return zerolog.WarnLevel
	case logging.SeverityError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}
