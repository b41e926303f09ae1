// Package logger wraps log/slog with request scoped fields.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type requestIDKey struct{}
type userIDKey struct{}

var defaultLogger *slog.Logger

// Init installs the process logger writing to stdout. level is any slog
// level name ("debug", "INFO", "warn"); unknown names mean info. format
// "json" selects JSON lines, anything else logfmt-style text.
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter is Init with an explicit destination. The CLI logs to stderr.
func InitWithWriter(w io.Writer, level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Get returns the process logger, initializing a JSON info logger on first use.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("info", "json")
	}
	return defaultLogger
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithContext returns the process logger carrying the request and user ids
// stored in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	l := Get()
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if id, _ := ctx.Value(userIDKey{}).(string); id != "" {
		l = l.With("user_id", id)
	}
	return l
}

func WithFields(fields ...any) *slog.Logger {
	return Get().With(fields...)
}

func NewRequestID() string {
	return uuid.NewString()
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}
