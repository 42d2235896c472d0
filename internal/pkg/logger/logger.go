// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey identifies request-scoped values the logger knows how to lift
// into log records.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeyClientIP  ContextKey = "client_ip"
	ContextKeyUserAgent ContextKey = "user_agent"
	ContextKeyDeviceID  ContextKey = "device_id"
	ContextKeyMethod    ContextKey = "method"
	ContextKeyPath      ContextKey = "path"
)

var contextKeys = []ContextKey{
	ContextKeyRequestID,
	ContextKeyTraceID,
	ContextKeyClientIP,
	ContextKeyUserAgent,
	ContextKeyDeviceID,
	ContextKeyMethod,
	ContextKeyPath,
}

// Logger wraps slog.Logger with context-aware attribute extraction.
type Logger struct {
	*slog.Logger
}

// SetupLogger builds the process logger and installs it as the slog default.
// Format is "json" or "text"; anything else falls back to json.
func SetupLogger(level, format string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	handler = newRedactHandler(newContextHandler(handler))

	if name := os.Getenv("SERVICE_NAME"); name != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", name)})
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("env", env)})
	}

	l := &Logger{Logger: slog.New(handler)}
	slog.SetDefault(l.Logger)
	return l
}

// WithContext returns a logger with the request-scoped attributes attached.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return l.Logger
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return l.Logger.With(args...)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
