package gsacache

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with cache-specific context.
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
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithSession adds the sync session id to every record.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session", id),
	}
}

// LogUpsert logs a native record upsert.
func (l *Logger) LogUpsert(ctx context.Context, schemaType string, index, position int, created bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed",
			"schema_type", schemaType,
			"index", index,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "upsert completed",
		"schema_type", schemaType,
		"index", index,
		"position", position,
		"created", created,
	)
}

// LogBatchUpsert logs a batch upsert.
func (l *Logger) LogBatchUpsert(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch upsert completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
		return
	}
	l.InfoContext(ctx, "batch upsert completed",
		"count", count,
	)
}

// LogResolve logs an index resolution.
func (l *Logger) LogResolve(ctx context.Context, schemaType, appID string, index int, state string) {
	l.DebugContext(ctx, "index resolved",
		"schema_type", schemaType,
		"application_id", appID,
		"index", index,
		"state", state,
	)
}

// LogRehome logs a reservation moved by a conflicting real record.
func (l *Logger) LogRehome(ctx context.Context, schemaType, appID string, from, to int) {
	l.InfoContext(ctx, "reservation re-homed",
		"schema_type", schemaType,
		"application_id", appID,
		"from", from,
		"to", to,
	)
}

// LogLink logs linking domain objects to a native record.
func (l *Logger) LogLink(ctx context.Context, schemaType string, index, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "link completed with failures",
			"schema_type", schemaType,
			"index", index,
			"count", count,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "link completed",
		"schema_type", schemaType,
		"index", index,
		"count", count,
	)
}

// LogClear logs the end of a session.
func (l *Logger) LogClear(ctx context.Context, records, objects int) {
	l.InfoContext(ctx, "cache cleared",
		"records", records,
		"objects", objects,
	)
}
