// Package local provides an in-process audit sink that writes events
// to a structured logger.
//
// It is the sink relayd uses when no remote log sink is configured,
// and the one relay-logsink uses to print what it receives.
package local

import (
	"context"
	"log/slog"

	"github.com/blockberries/relay/audit"
	"github.com/blockberries/relay/types"
)

// Compile-time interface check.
var _ audit.Sink = (*Sink)(nil)

// Sink writes audit events to a *slog.Logger.
type Sink struct {
	logger *slog.Logger
}

// NewSink creates a sink writing to logger. A nil logger means
// slog.Default().
func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

// Emit writes the event as one log record. The record time is the
// event's own timestamp, not the time of delivery.
func (s *Sink) Emit(ctx context.Context, event types.LogEvent) error {
	level := Level(event.Level)
	if !s.logger.Enabled(ctx, level) {
		return nil
	}

	rec := slog.NewRecord(event.Time.ToTime(), level, event.Message, 0)
	rec.AddAttrs(
		slog.String("appId", event.AppID),
		slog.String("requestId", event.RequestID),
	)
	for _, f := range event.Fields {
		rec.AddAttrs(slog.String(f.Key, f.Value))
	}
	return s.logger.Handler().Handle(ctx, rec)
}

// Level maps an audit level to a slog level. Unknown levels log as
// errors so they are not filtered out.
func Level(l types.LogLevel) slog.Level {
	switch l {
	case types.LevelDebug:
		return slog.LevelDebug
	case types.LevelInfo:
		return slog.LevelInfo
	case types.LevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
