package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// MapStorageError converts a pgx/pgconn error raised while running op into a
// *domain.StorageError carrying the server-reported details.
// A command timeout (context.DeadlineExceeded or SQLSTATE 57014) is a
// storage error too. context.Canceled is NOT mapped; it passes through
// wrapped with op so a caller-driven abort stays distinct.
func MapStorageError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Already mapped further down the stack.
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &domain.StorageError{
			Op:       op,
			Code:     pgErr.Code,
			Severity: pgErr.Severity,
			Message:  pgErr.Message,
			Detail:   pgErr.Detail,
			Where:    pgErr.Where,
			Routine:  pgErr.Routine,
			Line:     pgErr.Line,
			Err:      err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.StorageError{Op: op, Code: queryCanceled, Message: "command timeout exceeded", Err: err}
	}

	return &domain.StorageError{Op: op, Message: err.Error(), Err: err}
}

// queryCanceled is the SQLSTATE PostgreSQL reports when statement_timeout
// fires; a client-side deadline is reported with the same code.
const queryCanceled = "57014"
