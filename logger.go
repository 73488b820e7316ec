package avmkit

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with application-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithApp adds an application ID field to the logger.
func (l *Logger) WithApp(appID uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("app_id", appID),
	}
}

// WithSender adds a sender address field to the logger.
func (l *Logger) WithSender(sender string) *Logger {
	return &Logger{
		Logger: l.Logger.With("sender", sender),
	}
}

// WithMethod adds a method name field to the logger.
func (l *Logger) WithMethod(method string) *Logger {
	return &Logger{
		Logger: l.Logger.With("method", method),
	}
}

// LogDispatch logs one routed call.
func (l *Logger) LogDispatch(ctx context.Context, handler string, oc OnCompletion, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dispatch failed",
			"handler", handler,
			"on_completion", oc.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "dispatch completed",
			"handler", handler,
			"on_completion", oc.String(),
		)
	}
}

// LogReject logs a call the router refused to deliver.
func (l *Logger) LogReject(ctx context.Context, oc OnCompletion, err error) {
	l.WarnContext(ctx, "call rejected",
		"on_completion", oc.String(),
		"error", err,
	)
}

// LogSpec logs the rendering of an application document.
func (l *Logger) LogSpec(ctx context.Context, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "spec rendering failed",
			"application", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "spec rendered",
			"application", name,
			"bytes", size,
		)
	}
}
