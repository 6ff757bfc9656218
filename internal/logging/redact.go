package logging

import (
	"context"
	"log/slog"
	"strings"
)

// RedactionMarker replaces secret attribute values in log output.
const RedactionMarker = "[REDACTED]"

// DefaultSecretKeys returns the attribute names whose values are masked.
// Matching is case-insensitive and applies at every log level.
func DefaultSecretKeys() []string {
	return []string{
		"username",
		"user",
		"password",
		"passwd",
		"pass",
		"secret",
		"token",
		"credential",
		"credentials",
		"api_key",
		"apikey",
		"authorization",
	}
}

// RedactHandler wraps a slog.Handler and masks attributes whose key is in the
// configured secret-name list. The list is fixed at construction; it is not
// read from ambient state.
type RedactHandler struct {
	inner   slog.Handler
	secrets map[string]struct{}
}

// NewRedactHandler creates a RedactHandler masking the given attribute keys.
func NewRedactHandler(inner slog.Handler, secretKeys []string) *RedactHandler {
	secrets := make(map[string]struct{}, len(secretKeys))
	for _, k := range secretKeys {
		secrets[strings.ToLower(k)] = struct{}{}
	}
	return &RedactHandler{inner: inner, secrets: secrets}
}

// Enabled reports whether the inner handler handles records at the given level.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle masks secret attributes and forwards the record to the inner handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redact(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs returns a new RedactHandler whose inner handler has the given
// (masked) attributes attached.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.redact(a)
	}
	return &RedactHandler{inner: h.inner.WithAttrs(masked), secrets: h.secrets}
}

// WithGroup returns a new RedactHandler with the given group opened.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{inner: h.inner.WithGroup(name), secrets: h.secrets}
}

// redact replaces the attribute value with the redaction marker when the key
// matches a secret name. Group attributes are masked recursively.
func (h *RedactHandler) redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		masked := make([]slog.Attr, len(members))
		for i, m := range members {
			masked[i] = h.redact(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}
	if _, ok := h.secrets[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, RedactionMarker)
	}
	return a
}
