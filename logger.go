package bigramdict

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/bigramdict/model"
)

// Logger wraps slog.Logger with dictionary-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithTerminal adds a terminal field to the logger.
func (l *Logger) WithTerminal(id model.TerminalID) *Logger {
	return &Logger{
		Logger: l.Logger.With("terminal", int32(id)),
	}
}

// LogAdd logs a bigram insert or update.
func (l *Logger) LogAdd(ctx context.Context, id, target model.TerminalID, added bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add bigram failed",
			"terminal", int32(id),
			"target", int32(target),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add bigram completed",
			"terminal", int32(id),
			"target", int32(target),
			"added", added,
		)
	}
}

// LogRemove logs a bigram removal. A missing bigram is not an error worth
// more than debug output.
func (l *Logger) LogRemove(ctx context.Context, id, target model.TerminalID, err error) {
	switch {
	case err == nil:
		l.DebugContext(ctx, "remove bigram completed",
			"terminal", int32(id),
			"target", int32(target),
		)
	case isNotFound(err):
		l.DebugContext(ctx, "remove bigram: not found",
			"terminal", int32(id),
			"target", int32(target),
		)
	default:
		l.ErrorContext(ctx, "remove bigram failed",
			"terminal", int32(id),
			"target", int32(target),
			"error", err,
		)
	}
}

// LogSweep logs a maintenance sweep.
func (l *Logger) LogSweep(ctx context.Context, stats SweepStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sweep failed",
			"lists", stats.Lists,
			"live", stats.Live,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sweep completed",
			"lists", stats.Lists,
			"live", stats.Live,
			"removed", stats.Removed,
			"duration", stats.Duration,
		)
	}
}

// LogSnapshot logs a snapshot save.
func (l *Logger) LogSnapshot(ctx context.Context, m Manifest, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"version", m.Version,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"version", m.Version,
			"snapshot", m.Snapshot,
			"bytes", m.SnapshotBytes,
			"lsn", m.LSN,
		)
	}
}

// LogRecovery logs a WAL recovery operation.
func (l *Logger) LogRecovery(ctx context.Context, entriesReplayed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "WAL recovery failed",
			"entries_replayed", entriesReplayed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "WAL recovery completed",
			"entries_replayed", entriesReplayed,
		)
	}
}
