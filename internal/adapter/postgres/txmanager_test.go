package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/publishing-store/internal/adapter/postgres"
	"github.com/heartmarshall/publishing-store/internal/adapter/postgres/testhelper"
)

// itemExists checks whether an item row with the given ID exists in the database.
func itemExists(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(
		context.Background(),
		`SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("itemExists query: %v", err)
	}
	return exists
}

func insertItem(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, name string) error {
	q := postgres.QuerierFromCtx(ctx, pool)
	_, err := q.Exec(ctx,
		`INSERT INTO items (id, name, created, updated) VALUES ($1, $2, now(), now())`,
		id, name,
	)
	return err
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	id := uuid.New()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return insertItem(ctx, pool, id, "commit")
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !itemExists(t, pool, id) {
		t.Fatal("expected item to exist after committed transaction")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	id := uuid.New()
	sentinel := errors.New("merge failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertItem(ctx, pool, id, "rollback"); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if itemExists(t, pool, id) {
		t.Fatal("expected item NOT to exist after rolled-back transaction")
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	id := uuid.New()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic to be re-raised")
		}
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}
		if itemExists(t, pool, id) {
			t.Fatal("expected item NOT to exist after panic-rolled-back transaction")
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if err := insertItem(ctx, pool, id, "panic"); err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_QuerierFromCtx_UsesTx(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	id := uuid.New()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		if !postgres.InTx(ctx) {
			t.Fatal("expected context to carry the transaction")
		}
		if err := insertItem(ctx, pool, id, "visible"); err != nil {
			return err
		}

		// Visible within the transaction, not outside it until commit.
		var exists bool
		q := postgres.QuerierFromCtx(ctx, pool)
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected item to be visible within the transaction")
		}
		if itemExists(t, pool, id) {
			t.Fatal("expected item to be invisible outside the transaction before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !itemExists(t, pool, id) {
		t.Fatal("expected item to exist after committed transaction")
	}
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	id := uuid.New()
	sentinel := errors.New("outer failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		innerErr := tm.RunInTx(ctx, func(ctx context.Context) error {
			return insertItem(ctx, pool, id, "nested")
		})
		if innerErr != nil {
			t.Fatalf("inner RunInTx returned error: %v", innerErr)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}
	if itemExists(t, pool, id) {
		t.Fatal("expected inner write to be rolled back with the outer transaction")
	}
}

func TestRunInTx_WithIsolation(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool, postgres.WithIsolation(pgx.Serializable))

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		var level string
		q := postgres.QuerierFromCtx(ctx, pool)
		if err := q.QueryRow(ctx, `SHOW transaction_isolation`).Scan(&level); err != nil {
			return err
		}
		if level != "serializable" {
			t.Fatalf("expected serializable isolation, got %q", level)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}
}

func TestInTx_Background(t *testing.T) {
	if postgres.InTx(context.Background()) {
		t.Fatal("expected no transaction in a background context")
	}
}
