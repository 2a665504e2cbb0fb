package services

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	pipelineKey  contextKey = "pipeline"
	requestIDKey contextKey = "request_id"
)

// WithSessionID annotates context with the capture or dictation session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPipeline annotates context with the pipeline name (sign2text/text2sign).
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	if pipeline == "" {
		return ctx
	}
	return context.WithValue(ctx, pipelineKey, pipeline)
}

// PipelineFromContext returns the pipeline name if present.
func PipelineFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pipelineKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
