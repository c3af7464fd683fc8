package testhelper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// Now returns the current time at the precision PostgreSQL stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// SeedItem inserts an item with a unique name and no references.
func SeedItem(t *testing.T, pool *pgxpool.Pool) domain.Item {
	t.Helper()

	now := Now()
	item := domain.Item{
		ID:      uuid.New(),
		Name:    "Item " + uniqueSuffix(),
		Created: now,
		Updated: now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO items (id, name, template_id, master_id, parent_id, created, updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.Name, item.TemplateID, item.MasterID, item.ParentID, item.Created, item.Updated,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedItem: %v", err)
	}

	return item
}

// SeedField inserts f into the table of its partition. A nil row id is
// replaced with a new one and zero timestamps with the current time.
func SeedField(t *testing.T, pool *pgxpool.Pool, f domain.Field) domain.Field {
	t.Helper()

	p, ok := f.Partition()
	if !ok {
		t.Fatalf("testhelper: SeedField: field %s has no partition", f.FieldID)
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Created.IsZero() {
		f.Created = Now()
	}
	if f.Updated.IsZero() {
		f.Updated = f.Created
	}

	var err error
	switch p {
	case domain.PartitionShared:
		_, err = pool.Exec(context.Background(),
			`INSERT INTO shared_fields (id, item_id, field_id, value, created, updated)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, f.ItemID, f.FieldID, f.Value, f.Created, f.Updated,
		)
	case domain.PartitionUnversioned:
		_, err = pool.Exec(context.Background(),
			`INSERT INTO unversioned_fields (id, item_id, field_id, language, value, created, updated)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.ItemID, f.FieldID, *f.Language, f.Value, f.Created, f.Updated,
		)
	case domain.PartitionVersioned:
		_, err = pool.Exec(context.Background(),
			`INSERT INTO versioned_fields (id, item_id, field_id, language, version, value, created, updated)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			f.ID, f.ItemID, f.FieldID, *f.Language, *f.Version, f.Value, f.Created, f.Updated,
		)
	}
	if err != nil {
		t.Fatalf("testhelper: SeedField %s: %v", p, err)
	}

	return f
}

// CountFields returns the number of rows of partition p that belong to itemID.
func CountFields(t *testing.T, pool *pgxpool.Pool, p domain.Partition, itemID uuid.UUID) int {
	t.Helper()

	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE item_id = $1`, tableName(p))
	if err := pool.QueryRow(context.Background(), query, itemID).Scan(&n); err != nil {
		t.Fatalf("testhelper: CountFields: %v", err)
	}
	return n
}

// FieldValue returns the stored value of the row of partition p with the
// natural key of f. ok is false when no such row exists.
func FieldValue(t *testing.T, pool *pgxpool.Pool, p domain.Partition, f domain.Field) (value *string, ok bool) {
	t.Helper()

	query := fmt.Sprintf(`SELECT value FROM %s WHERE item_id = $1 AND field_id = $2`, tableName(p))
	args := []any{f.ItemID, f.FieldID}
	if p >= domain.PartitionUnversioned {
		query += ` AND language = $3`
		args = append(args, *f.Language)
	}
	if p == domain.PartitionVersioned {
		query += ` AND version = $4`
		args = append(args, *f.Version)
	}

	rows, err := pool.Query(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("testhelper: FieldValue: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			t.Fatalf("testhelper: FieldValue: %v", err)
		}
		return nil, false
	}
	if err := rows.Scan(&value); err != nil {
		t.Fatalf("testhelper: FieldValue scan: %v", err)
	}
	return value, true
}

func tableName(p domain.Partition) string {
	switch p {
	case domain.PartitionUnversioned:
		return "unversioned_fields"
	case domain.PartitionVersioned:
		return "versioned_fields"
	}
	return "shared_fields"
}
