package variant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/heartmarshall/publishing-store/internal/adapter/postgres"
	"github.com/heartmarshall/publishing-store/internal/domain"
)

// ---------------------------------------------------------------------------
// Raw SQL for set-based writes (one statement per phase)
// ---------------------------------------------------------------------------

const updateItemsSQL = `
UPDATE items AS i
SET name        = u.name,
    template_id = u.template_id,
    master_id   = u.master_id,
    parent_id   = u.parent_id,
    updated     = u.updated
FROM unnest($1::uuid[], $2::text[], $3::uuid[], $4::uuid[], $5::uuid[], $6::timestamptz[])
    AS u(id, name, template_id, master_id, parent_id, updated)
WHERE i.id = u.id`

const insertItemsSQL = `
INSERT INTO items (id, name, template_id, master_id, parent_id, created, updated)
SELECT * FROM unnest($1::uuid[], $2::text[], $3::uuid[], $4::uuid[], $5::uuid[], $6::timestamptz[], $7::timestamptz[])`

const updateFieldsSQL = `
UPDATE %s AS f
SET value   = u.value,
    updated = u.updated
FROM unnest($1::uuid[], $2::text[], $3::timestamptz[]) AS u(id, value, updated)
WHERE f.id = u.id`

const insertSharedFieldsSQL = `
INSERT INTO shared_fields (id, item_id, field_id, value, created, updated)
SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::timestamptz[], $6::timestamptz[])`

const insertUnversionedFieldsSQL = `
INSERT INTO unversioned_fields (id, item_id, field_id, language, value, created, updated)
SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::text[], $6::timestamptz[], $7::timestamptz[])`

const insertVersionedFieldsSQL = `
INSERT INTO versioned_fields (id, item_id, field_id, language, version, value, created, updated)
SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::uuid[], $4::text[], $5::int4[], $6::text[], $7::timestamptz[], $8::timestamptz[])`

const deleteFieldsSQL = `DELETE FROM %s WHERE id = ANY($1::uuid[])`

// Forces the server to finish every preceding statement of the batch before
// the connection is handed back.
const flushMarkerSQL = `SELECT 1`

// ---------------------------------------------------------------------------
// ApplyWritePlan
// ---------------------------------------------------------------------------

// statement is one queued write together with the number of rows it must affect.
type statement struct {
	op   string
	want int
}

// ApplyWritePlan executes the plan in its fixed phase order in a single
// round trip. Every statement must affect exactly the number of rows the
// plan names; anything else is reported as domain.ErrResultMismatch.
// The call must run inside the caller's transaction to be atomic with the
// reads that produced the plan.
func (r *Repo) ApplyWritePlan(ctx context.Context, plan *domain.WritePlan) error {
	if plan == nil || plan.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	var stmts []statement

	queue := func(op string, want int, sql string, args ...any) {
		batch.Queue(sql, args...)
		stmts = append(stmts, statement{op: op, want: want})
	}

	if n := len(plan.UpdatedItems); n > 0 {
		queue("update items", n, updateItemsSQL, updateItemsArgs(plan.UpdatedItems)...)
	}
	if n := len(plan.InsertedItems); n > 0 {
		queue("insert items", n, insertItemsSQL, insertItemsArgs(plan.InsertedItems)...)
	}

	for _, p := range domain.Partitions {
		w := plan.Fields[p]
		if n := len(w.Updated); n > 0 {
			queue("update "+p.String()+" fields", n, fmt.Sprintf(updateFieldsSQL, tableName(p)), updateFieldsArgs(w.Updated)...)
		}
		if n := len(w.Inserted); n > 0 {
			queue("insert "+p.String()+" fields", n, insertFieldsSQL(p), insertFieldsArgs(p, w.Inserted)...)
		}
		if n := len(w.Deleted); n > 0 {
			queue("delete "+p.String()+" fields", n, fmt.Sprintf(deleteFieldsSQL, tableName(p)), w.Deleted)
		}
	}

	if r.flushMarker {
		batch.Queue(flushMarkerSQL)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	results := postgres.QuerierFromCtx(ctx, r.pool).SendBatch(ctx, batch)
	if err := readResults(results, stmts, r.flushMarker); err != nil {
		_ = results.Close()
		return err
	}

	if err := results.Close(); err != nil {
		return postgres.MapStorageError(err, "apply write plan")
	}

	return nil
}

func readResults(results pgx.BatchResults, stmts []statement, flushMarker bool) error {
	for _, s := range stmts {
		tag, err := results.Exec()
		if err != nil {
			return postgres.MapStorageError(err, s.op)
		}
		if got := int(tag.RowsAffected()); got != s.want {
			return fmt.Errorf("%s: %w: %d rows affected, want %d", s.op, domain.ErrResultMismatch, got, s.want)
		}
	}

	if !flushMarker {
		return nil
	}

	var marker int
	if err := results.QueryRow().Scan(&marker); err != nil {
		return postgres.MapStorageError(err, "flush marker")
	}
	if marker != 1 {
		return fmt.Errorf("flush marker: %w: got %d", domain.ErrResultMismatch, marker)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Column arrays
// ---------------------------------------------------------------------------

func updateItemsArgs(items []domain.Item) []any {
	ids := make([]uuid.UUID, len(items))
	names := make([]string, len(items))
	templates := make([]pgtype.UUID, len(items))
	masters := make([]pgtype.UUID, len(items))
	parents := make([]pgtype.UUID, len(items))
	updated := make([]time.Time, len(items))

	for i, it := range items {
		ids[i] = it.ID
		names[i] = it.Name
		templates[i] = ptrToPgUUID(it.TemplateID)
		masters[i] = ptrToPgUUID(it.MasterID)
		parents[i] = ptrToPgUUID(it.ParentID)
		updated[i] = it.Updated
	}

	return []any{ids, names, templates, masters, parents, updated}
}

func insertItemsArgs(items []domain.Item) []any {
	args := updateItemsArgs(items)
	created := make([]time.Time, len(items))
	for i, it := range items {
		created[i] = it.Created
	}
	// created precedes updated in the insert column list.
	return []any{args[0], args[1], args[2], args[3], args[4], created, args[5]}
}

func updateFieldsArgs(fields []domain.Field) []any {
	ids := make([]uuid.UUID, len(fields))
	values := make([]pgtype.Text, len(fields))
	updated := make([]time.Time, len(fields))

	for i, f := range fields {
		ids[i] = f.ID
		values[i] = ptrToPgText(f.Value)
		updated[i] = f.Updated
	}

	return []any{ids, values, updated}
}

func insertFieldsSQL(p domain.Partition) string {
	switch p {
	case domain.PartitionUnversioned:
		return insertUnversionedFieldsSQL
	case domain.PartitionVersioned:
		return insertVersionedFieldsSQL
	}
	return insertSharedFieldsSQL
}

func insertFieldsArgs(p domain.Partition, fields []domain.Field) []any {
	n := len(fields)
	ids := make([]uuid.UUID, n)
	itemIDs := make([]uuid.UUID, n)
	fieldIDs := make([]uuid.UUID, n)
	languages := make([]string, n)
	versions := make([]int32, n)
	values := make([]pgtype.Text, n)
	created := make([]time.Time, n)
	updated := make([]time.Time, n)

	for i, f := range fields {
		ids[i] = f.ID
		itemIDs[i] = f.ItemID
		fieldIDs[i] = f.FieldID
		if f.Language != nil {
			languages[i] = *f.Language
		}
		if f.Version != nil {
			versions[i] = int32(*f.Version) // range-checked at staging
		}
		values[i] = ptrToPgText(f.Value)
		created[i] = f.Created
		updated[i] = f.Updated
	}

	switch p {
	case domain.PartitionUnversioned:
		return []any{ids, itemIDs, fieldIDs, languages, values, created, updated}
	case domain.PartitionVersioned:
		return []any{ids, itemIDs, fieldIDs, languages, versions, values, created, updated}
	}
	return []any{ids, itemIDs, fieldIDs, values, created, updated}
}
