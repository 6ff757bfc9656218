// Package logging provides a configured slog logger with:
// - TTY detection for human-readable vs JSON output
// - explicit level/format/debug options supplied at construction
// - Context-based requestID extraction for filtering
// - Uniform redaction of secret-valued attributes (see redact.go)
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	logfilter "github.com/jmylchreest/slog-logfilter"
)

// ContextKey is a type for context keys used in logging.
type ContextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey ContextKey = "log_request_id"

// WithRequestID adds a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(RequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// FromContext returns a logger with requestID from context added as an attribute.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if ctx == nil {
		return logger
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		return logger.With("request_id", requestID)
	}

	return logger
}

// registerContextExtractors registers the context extractors for filtering.
func registerContextExtractors() {
	logfilter.RegisterContextExtractor("request_id", func(ctx context.Context) (string, bool) {
		if ctx == nil {
			return "", false
		}
		if v := ctx.Value(RequestIDKey); v != nil {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
		return "", false
	})
}

// Options configures the logger. Values come from explicit configuration
// (config.Load); the logging package never reads the environment itself.
type Options struct {
	// Level is debug/info/warn/error; unknown values fall back to info.
	Level string

	// Format is "text" or "json"; anything else falls back to TTY detection
	// (text on a terminal, JSON otherwise).
	Format string

	// Debug forces the debug level regardless of Level.
	Debug bool
}

// New creates a new configured logger using slog-logfilter, wrapped in a
// redacting handler that masks secret-valued attributes.
func New(opts Options) *slog.Logger {
	format := opts.Format
	if format != "text" && format != "json" {
		format = "json"
		if isatty(os.Stdout) {
			format = "text"
		}
	}

	level := parseLogLevel(opts.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}

	registerContextExtractors()

	base := logfilter.New(
		logfilter.WithLevel(level),
		logfilter.WithFormat(format),
		logfilter.WithOutput(os.Stdout),
		logfilter.WithSource(true),
	)

	return slog.New(NewRedactHandler(base.Handler(), DefaultSecretKeys()))
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// SetDefault creates a new logger and sets it as the default slog logger.
func SetDefault(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the global log level at runtime.
func SetLevel(level slog.Level) {
	logfilter.SetLevel(level)
}

// GetLevel returns the current global log level.
func GetLevel() slog.Level {
	return logfilter.GetLevel()
}

// isatty returns true if the file is a terminal.
func isatty(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
