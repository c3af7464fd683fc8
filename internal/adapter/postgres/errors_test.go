package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

func TestMapStorageError_Nil(t *testing.T) {
	t.Parallel()

	if got := MapStorageError(nil, "load items"); got != nil {
		t.Errorf("MapStorageError(nil) = %v, want nil", got)
	}
}

func TestMapStorageError_PgError(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{
		Severity: "ERROR",
		Code:     "23505",
		Message:  "duplicate key value violates unique constraint \"items_pkey\"",
		Detail:   "Key (id)=(...) already exists.",
		Routine:  "_bt_check_unique",
		Line:     664,
	}
	got := MapStorageError(fmt.Errorf("batch exec: %w", pgErr), "insert items")

	if !errors.Is(got, domain.ErrStorageOperation) {
		t.Fatalf("MapStorageError does not wrap domain.ErrStorageOperation: %v", got)
	}
	if !errors.Is(got, pgErr) {
		t.Fatalf("MapStorageError lost the driver error: %v", got)
	}

	var storageErr *domain.StorageError
	if !errors.As(got, &storageErr) {
		t.Fatalf("expected *domain.StorageError, got %T", got)
	}
	if storageErr.Op != "insert items" {
		t.Errorf("Op = %q, want %q", storageErr.Op, "insert items")
	}
	if storageErr.Code != "23505" || storageErr.Severity != "ERROR" {
		t.Errorf("Code/Severity = %q/%q", storageErr.Code, storageErr.Severity)
	}
	if storageErr.Routine != "_bt_check_unique" || storageErr.Line != 664 {
		t.Errorf("Routine/Line = %q/%d", storageErr.Routine, storageErr.Line)
	}
	if storageErr.Detail == "" {
		t.Error("Detail should be carried over")
	}
}

func TestMapStorageError_PlainError(t *testing.T) {
	t.Parallel()

	cause := errors.New("conn closed")
	got := MapStorageError(cause, "load shared fields")

	if !errors.Is(got, domain.ErrStorageOperation) {
		t.Fatalf("expected ErrStorageOperation, got %v", got)
	}
	if !errors.Is(got, cause) {
		t.Fatalf("expected cause to be preserved, got %v", got)
	}
}

func TestMapStorageError_AlreadyMapped(t *testing.T) {
	t.Parallel()

	inner := &domain.StorageError{Op: "delete versioned fields", Code: "40P01"}
	got := MapStorageError(fmt.Errorf("apply: %w", inner), "apply write plan")

	var storageErr *domain.StorageError
	if !errors.As(got, &storageErr) {
		t.Fatalf("expected *domain.StorageError, got %T", got)
	}
	if storageErr.Op != "delete versioned fields" {
		t.Errorf("inner Op should be kept, got %q", storageErr.Op)
	}
}

func TestMapStorageError_ContextDeadlineExceeded(t *testing.T) {
	t.Parallel()

	got := MapStorageError(fmt.Errorf("send batch: %w", context.DeadlineExceeded), "apply write plan")

	if !errors.Is(got, domain.ErrStorageOperation) {
		t.Errorf("command timeout should map to ErrStorageOperation: %v", got)
	}
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("command timeout should keep DeadlineExceeded matchable: %v", got)
	}

	var storageErr *domain.StorageError
	if !errors.As(got, &storageErr) {
		t.Fatalf("expected *domain.StorageError, got %T", got)
	}
	if storageErr.Op != "apply write plan" {
		t.Errorf("Op = %q, want %q", storageErr.Op, "apply write plan")
	}
	if storageErr.Code != "57014" {
		t.Errorf("Code = %q, want 57014", storageErr.Code)
	}
}

func TestMapStorageError_StatementTimeout(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Severity: "ERROR", Code: "57014", Message: "canceling statement due to statement timeout"}
	got := MapStorageError(pgErr, "load items")

	var storageErr *domain.StorageError
	if !errors.As(got, &storageErr) {
		t.Fatalf("expected *domain.StorageError, got %T", got)
	}
	if storageErr.Code != "57014" {
		t.Errorf("Code = %q, want 57014", storageErr.Code)
	}
}

func TestMapStorageError_ContextCanceled(t *testing.T) {
	t.Parallel()

	got := MapStorageError(fmt.Errorf("query: %w", context.Canceled), "load items")

	if !errors.Is(got, context.Canceled) {
		t.Errorf("MapStorageError(Canceled) should pass through: %v", got)
	}
	if errors.Is(got, domain.ErrStorageOperation) {
		t.Errorf("cancellation must not be mapped to ErrStorageOperation: %v", got)
	}
}
