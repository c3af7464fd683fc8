package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

func TestSetupTestDB_Smoke(t *testing.T) {
	pool := SetupTestDB(t)

	item := SeedItem(t, pool)

	// Verify item exists in DB via SELECT.
	var name string
	err := pool.QueryRow(
		context.Background(),
		`SELECT name FROM items WHERE id = $1`,
		item.ID,
	).Scan(&name)
	if err != nil {
		t.Fatalf("expected item in DB, got error: %v", err)
	}
	if name != item.Name {
		t.Fatalf("expected name %q, got %q", item.Name, name)
	}

	lang, version, value := "en", 1, "v"
	f := SeedField(t, pool, domain.Field{
		ItemID:   item.ID,
		FieldID:  uuid.New(),
		Language: &lang,
		Version:  &version,
		Value:    &value,
	})

	if n := CountFields(t, pool, domain.PartitionVersioned, item.ID); n != 1 {
		t.Fatalf("expected 1 versioned field, got %d", n)
	}
	got, ok := FieldValue(t, pool, domain.PartitionVersioned, f)
	if !ok || got == nil || *got != value {
		t.Fatalf("expected value %q, got %v (found=%v)", value, got, ok)
	}
}
