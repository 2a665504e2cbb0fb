package logging

import (
	"context"
	"log/slog"
)

type Attr = slog.Attr

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error renders err under the "error" key. A nil error is logged as "<nil>"
// so call sites never need a guard.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func toArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger tags logger with the component key. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// Default hints for warnings that omit them. Most signbridge warnings come
// from loops that keep running, so the impact defaults to a retry.
const (
	defaultErrorHint = "check logs for details"
	defaultImpact    = "operation will be retried"
)

// WarnWithContext logs a warning that always carries event_type, error_hint,
// and impact. Missing fields are filled from eventType and the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	var hasEvent, hasHint, hasImpact bool
	for _, a := range attrs {
		switch a.Key {
		case FieldEventType:
			hasEvent = true
		case FieldErrorHint:
			hasHint = true
		case FieldImpact:
			hasImpact = true
		}
	}
	if !hasEvent {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasHint {
		attrs = append(attrs, String(FieldErrorHint, defaultErrorHint))
	}
	if !hasImpact {
		attrs = append(attrs, String(FieldImpact, defaultImpact))
	}
	logger.Warn(msg, toArgs(attrs)...)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool { return false }

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }

func (discardHandler) WithAttrs([]slog.Attr) slog.Handler { return discardHandler{} }

func (discardHandler) WithGroup(string) slog.Handler { return discardHandler{} }
