// Package variant implements the item variant store using PostgreSQL.
// Reads lock the rows they return (SELECT … FOR UPDATE) so that the
// read-diff-write sequence of a publishing batch is not interleaved with
// another writer of the same items. Writes of a whole plan are sent as one
// pgx.Batch.
package variant

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/publishing-store/internal/adapter/postgres"
	"github.com/heartmarshall/publishing-store/internal/domain"
)

// Repo provides item and field persistence backed by PostgreSQL.
type Repo struct {
	pool           *pgxpool.Pool
	commandTimeout time.Duration
	flushMarker    bool
}

// Option configures a Repo.
type Option func(*Repo)

// WithCommandTimeout bounds every round trip to the database.
// Zero disables the bound.
func WithCommandTimeout(d time.Duration) Option {
	return func(r *Repo) { r.commandTimeout = d }
}

// WithFlushMarker makes ApplyWritePlan append a trailing SELECT 1 to the
// write batch and read it back before returning.
func WithFlushMarker(enabled bool) Option {
	return func(r *Repo) { r.flushMarker = enabled }
}

// New creates a new variant repository.
func New(pool *pgxpool.Pool, opts ...Option) *Repo {
	r := &Repo{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RequiresFlushMarker reports whether write batches end with a flush marker.
func (r *Repo) RequiresFlushMarker() bool { return r.flushMarker }

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.commandTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.commandTimeout)
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var itemColumns = []string{"id", "name", "template_id", "master_id", "parent_id", "created", "updated"}

// tableName returns the table that stores partition p.
func tableName(p domain.Partition) string {
	switch p {
	case domain.PartitionShared:
		return "shared_fields"
	case domain.PartitionUnversioned:
		return "unversioned_fields"
	case domain.PartitionVersioned:
		return "versioned_fields"
	}
	panic(fmt.Sprintf("variant: unknown partition %d", p))
}

// fieldColumns returns the column list of partition p in scan order.
func fieldColumns(p domain.Partition) []string {
	cols := []string{"id", "item_id", "field_id"}
	if p >= domain.PartitionUnversioned {
		cols = append(cols, "language")
	}
	if p == domain.PartitionVersioned {
		cols = append(cols, "version")
	}
	return append(cols, "value", "created", "updated")
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// ItemsByID returns the stored items with the given ids and locks them for
// the rest of the transaction. Missing ids are simply absent from the result.
func (r *Repo) ItemsByID(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error) {
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}

	query, args, err := psql.Select(itemColumns...).
		From("items").
		Where(sq.Expr("id = ANY(?::uuid[])", ids)).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapStorageError(err, "load items")
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, postgres.MapStorageError(err, "load items")
	}

	return items, nil
}

// FieldsByItemID returns every stored field row of partition p that belongs
// to one of itemIDs and locks those rows for the rest of the transaction.
func (r *Repo) FieldsByItemID(ctx context.Context, p domain.Partition, itemIDs []uuid.UUID) ([]domain.Field, error) {
	if len(itemIDs) == 0 {
		return []domain.Field{}, nil
	}

	op := "load " + p.String() + " fields"

	query, args, err := psql.Select(fieldColumns(p)...).
		From(tableName(p)).
		Where(sq.Expr("item_id = ANY(?::uuid[])", itemIDs)).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", tableName(p), err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapStorageError(err, op)
	}
	defer rows.Close()

	fields, err := scanFields(rows, p)
	if err != nil {
		return nil, postgres.MapStorageError(err, op)
	}

	return fields, nil
}

// ---------------------------------------------------------------------------
// Scanners
// ---------------------------------------------------------------------------

func scanItems(rows pgx.Rows) ([]domain.Item, error) {
	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		var templateID, masterID, parentID pgtype.UUID

		if err := rows.Scan(&it.ID, &it.Name, &templateID, &masterID, &parentID, &it.Created, &it.Updated); err != nil {
			return nil, err
		}
		it.TemplateID = pgUUIDToPtr(templateID)
		it.MasterID = pgUUIDToPtr(masterID)
		it.ParentID = pgUUIDToPtr(parentID)
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanFields(rows pgx.Rows, p domain.Partition) ([]domain.Field, error) {
	fields := []domain.Field{}
	for rows.Next() {
		var (
			f        domain.Field
			language string
			version  int32
			value    pgtype.Text
		)

		dest := []any{&f.ID, &f.ItemID, &f.FieldID}
		if p >= domain.PartitionUnversioned {
			dest = append(dest, &language)
		}
		if p == domain.PartitionVersioned {
			dest = append(dest, &version)
		}
		dest = append(dest, &value, &f.Created, &f.Updated)

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		if p >= domain.PartitionUnversioned {
			f.Language = &language
		}
		if p == domain.PartitionVersioned {
			v := int(version)
			f.Version = &v
		}
		f.Value = pgTextToPtr(value)
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// ---------------------------------------------------------------------------
// pgtype converters
// ---------------------------------------------------------------------------

func pgUUIDToPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func ptrToPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func pgTextToPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func ptrToPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
