package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	// TraceIDKey is the log field and context key for the trace id
	TraceIDKey = "trace_id"

	traceIDKey  ctxKey = TraceIDKey
	queryTagKey ctxKey = "query_tag"
)

// GetTraceID gets trace id from context.Context.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// SetTraceID sets trace id to context.Context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// EnsureTraceID ensures that a trace ID exists in the context.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		return ctx, traceID
	}
	traceID := uuid.NewString()
	return SetTraceID(ctx, traceID), traceID
}

// SetQueryTag sets the query tag prefix to context.Context.
func SetQueryTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, queryTagKey, tag)
}

// GetQueryTag gets the query tag prefix from context.Context.
func GetQueryTag(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if tag, ok := ctx.Value(queryTagKey).(string); ok {
		return tag
	}
	return ""
}

// QueryTag joins the context prefix, if any, with the operation name
func QueryTag(ctx context.Context, op string) string {
	if prefix := GetQueryTag(ctx); prefix != "" {
		return prefix + "." + op
	}
	return op
}
