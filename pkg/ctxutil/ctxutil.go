package ctxutil

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey string

const (
	batchIDKey   ctxKey = "batch_id"
	requestIDKey ctxKey = "request_id"
)

// WithBatchID stores the publishing batch ID in the context.
func WithBatchID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromCtx extracts the publishing batch ID from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func BatchIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(batchIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EnsureBatchID returns ctx unchanged when it already carries a batch ID,
// otherwise a child context with a fresh one.
func EnsureBatchID(ctx context.Context) (context.Context, uuid.UUID) {
	if id, ok := BatchIDFromCtx(ctx); ok {
		return ctx, id
	}
	id := uuid.New()
	return WithBatchID(ctx, id), id
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// LogAttrs returns the correlation ids found in ctx as log attributes.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id, ok := BatchIDFromCtx(ctx); ok {
		attrs = append(attrs, slog.String("batch_id", id.String()))
	}
	if id := RequestIDFromCtx(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return attrs
}
