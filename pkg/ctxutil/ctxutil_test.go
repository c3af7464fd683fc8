package ctxutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestWithBatchID_And_BatchIDFromCtx(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := WithBatchID(context.Background(), id)

	got, ok := BatchIDFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for valid UUID")
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestBatchIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := BatchIDFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if got != uuid.Nil {
		t.Fatalf("expected uuid.Nil, got %s", got)
	}
}

func TestBatchIDFromCtx_NilUUID(t *testing.T) {
	t.Parallel()

	ctx := WithBatchID(context.Background(), uuid.Nil)

	if _, ok := BatchIDFromCtx(ctx); ok {
		t.Fatal("expected ok=false for uuid.Nil")
	}
}

func TestBatchIDFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("batch_id"), "not-a-uuid")

	got, ok := BatchIDFromCtx(ctx)
	if ok {
		t.Fatal("expected ok=false for wrong type")
	}
	if got != uuid.Nil {
		t.Fatalf("expected uuid.Nil, got %s", got)
	}
}

func TestEnsureBatchID_KeepsExisting(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx, got := EnsureBatchID(WithBatchID(context.Background(), id))

	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
	if fromCtx, _ := BatchIDFromCtx(ctx); fromCtx != id {
		t.Fatalf("expected context to carry %s, got %s", id, fromCtx)
	}
}

func TestEnsureBatchID_GeneratesMissing(t *testing.T) {
	t.Parallel()

	ctx, got := EnsureBatchID(context.Background())

	if got == uuid.Nil {
		t.Fatal("expected a generated batch id")
	}
	if fromCtx, ok := BatchIDFromCtx(ctx); !ok || fromCtx != got {
		t.Fatalf("expected context to carry %s, got %s", got, fromCtx)
	}
}

func TestWithRequestID_And_RequestIDFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "req-123")

	got := RequestIDFromCtx(ctx)
	if got != "req-123" {
		t.Fatalf("expected req-123, got %s", got)
	}
}

func TestRequestIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got := RequestIDFromCtx(context.Background())
	if got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
}

func TestRequestIDFromCtx_WrongType(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), ctxKey("request_id"), 12345)

	got := RequestIDFromCtx(ctx)
	if got != "" {
		t.Fatalf("expected empty string, got %s", got)
	}
}

func TestLogAttrs(t *testing.T) {
	t.Parallel()

	if attrs := LogAttrs(context.Background()); len(attrs) != 0 {
		t.Fatalf("expected no attrs, got %v", attrs)
	}

	id := uuid.New()
	ctx := WithRequestID(WithBatchID(context.Background(), id), "req-1")

	attrs := LogAttrs(ctx)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attrs, got %d", len(attrs))
	}
	if a := attrs[0].(slog.Attr); a.Key != "batch_id" || a.Value.String() != id.String() {
		t.Fatalf("unexpected batch attr %v", a)
	}
	if a := attrs[1].(slog.Attr); a.Key != "request_id" || a.Value.String() != "req-1" {
		t.Fatalf("unexpected request attr %v", a)
	}
}
