package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newField(itemID uuid.UUID, lang *string, version *int, value string) domain.Field {
	return domain.Field{
		ID:       uuid.New(),
		ItemID:   itemID,
		FieldID:  uuid.New(),
		Language: lang,
		Version:  version,
		Value:    &value,
		Created:  now,
		Updated:  now,
	}
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func TestStore_RunInTx_CommitsOnSuccess(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		return s.ApplyWritePlan(ctx, &domain.WritePlan{InsertedItems: []domain.Item{{ID: id, Name: "A"}}})
	})

	require.NoError(t, err)
	_, ok := s.Item(id)
	assert.True(t, ok)
}

func TestStore_RunInTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()
	wantErr := errors.New("boom")

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.ApplyWritePlan(ctx, &domain.WritePlan{InsertedItems: []domain.Item{{ID: id, Name: "A"}}}))
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Zero(t, s.ItemCount())
}

func TestStore_RunInTx_RollsBackOnPanic(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()

	assert.Panics(t, func() {
		_ = s.RunInTx(context.Background(), func(ctx context.Context) error {
			require.NoError(t, s.ApplyWritePlan(ctx, &domain.WritePlan{InsertedItems: []domain.Item{{ID: id, Name: "A"}}}))
			panic("boom")
		})
	})
	assert.Zero(t, s.ItemCount())

	// The store is usable after the panic.
	require.NoError(t, s.RunInTx(context.Background(), func(context.Context) error { return nil }))
}

func TestStore_RunInTx_NestedJoinsOuter(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		innerErr := s.RunInTx(ctx, func(ctx context.Context) error {
			return s.ApplyWritePlan(ctx, &domain.WritePlan{InsertedItems: []domain.Item{{ID: id, Name: "A"}}})
		})
		require.NoError(t, innerErr)
		return errors.New("outer fails")
	})

	require.Error(t, err)
	assert.Zero(t, s.ItemCount(), "inner writes are discarded with the outer transaction")
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestStore_ItemsByID(t *testing.T) {
	t.Parallel()

	s := New()
	a, b := uuid.New(), uuid.New()
	s.PutItems(domain.Item{ID: a, Name: "A"}, domain.Item{ID: b, Name: "B"})

	items, err := s.ItemsByID(context.Background(), []uuid.UUID{b, uuid.New(), b})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Name)
}

func TestStore_FieldsByItemID(t *testing.T) {
	t.Parallel()

	s := New()
	a, b := uuid.New(), uuid.New()
	require.NoError(t, s.PutFields(
		newField(a, nil, nil, "shared"),
		newField(a, ptr("en"), nil, "unversioned"),
		newField(b, ptr("en"), nil, "other item"),
	))

	fields, err := s.FieldsByItemID(context.Background(), domain.PartitionUnversioned, []uuid.UUID{a})

	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, ptr("unversioned"), fields[0].Value)
}

func TestStore_FieldsByItemID_UnknownPartition(t *testing.T) {
	t.Parallel()

	_, err := New().FieldsByItemID(context.Background(), domain.Partition(7), []uuid.UUID{uuid.New()})
	require.Error(t, err)
}

func TestStore_Reads_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ItemsByID(ctx, []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

func TestStore_ApplyWritePlan_PhaseOrderAndEffects(t *testing.T) {
	t.Parallel()

	s := New()
	a := uuid.New()
	s.PutItems(domain.Item{ID: a, Name: "old"})

	stale := newField(a, ptr("en"), ptr(1), "stale")
	kept := newField(a, nil, nil, "old")
	require.NoError(t, s.PutFields(stale, kept))

	updated := kept
	updated.Value = ptr("new")

	inserted := newField(a, ptr("en"), nil, "fresh")

	plan := &domain.WritePlan{UpdatedItems: []domain.Item{{ID: a, Name: "new", Updated: now}}}
	plan.Fields[domain.PartitionShared].Updated = []domain.Field{updated}
	plan.Fields[domain.PartitionUnversioned].Inserted = []domain.Field{inserted}
	plan.Fields[domain.PartitionVersioned].Deleted = []uuid.UUID{stale.ID}

	require.NoError(t, s.ApplyWritePlan(context.Background(), plan))

	assert.Equal(t, []string{
		"update items",
		"update shared fields",
		"insert unversioned fields",
		"delete versioned fields",
	}, s.Ops())

	it, _ := s.Item(a)
	assert.Equal(t, "new", it.Name)

	got, ok := s.Field(domain.PartitionShared, kept.Key(domain.PartitionShared))
	require.True(t, ok)
	assert.Equal(t, ptr("new"), got.Value)

	_, ok = s.Field(domain.PartitionUnversioned, inserted.Key(domain.PartitionUnversioned))
	assert.True(t, ok)
	assert.Empty(t, s.Fields(domain.PartitionVersioned))

	s.ResetOps()
	assert.Empty(t, s.Ops())
}

func TestStore_ApplyWritePlan_EmptyPlanIsNoop(t *testing.T) {
	t.Parallel()

	s := New()
	require.NoError(t, s.ApplyWritePlan(context.Background(), nil))
	require.NoError(t, s.ApplyWritePlan(context.Background(), &domain.WritePlan{}))
	assert.Empty(t, s.Ops())
}

func TestStore_ApplyWritePlan_Errors(t *testing.T) {
	t.Parallel()

	a := uuid.New()
	existing := newField(a, nil, nil, "v")

	tests := []struct {
		name     string
		plan     func() *domain.WritePlan
		wantCode string
		wantIs   error
	}{
		{
			name: "duplicate item",
			plan: func() *domain.WritePlan {
				return &domain.WritePlan{InsertedItems: []domain.Item{{ID: a}}}
			},
			wantCode: uniqueViolation,
			wantIs:   domain.ErrStorageOperation,
		},
		{
			name: "duplicate natural key",
			plan: func() *domain.WritePlan {
				dup := existing
				dup.ID = uuid.New()
				p := &domain.WritePlan{}
				p.Fields[domain.PartitionShared].Inserted = []domain.Field{dup}
				return p
			},
			wantCode: uniqueViolation,
			wantIs:   domain.ErrStorageOperation,
		},
		{
			name: "update of missing item",
			plan: func() *domain.WritePlan {
				return &domain.WritePlan{UpdatedItems: []domain.Item{{ID: uuid.New()}}}
			},
			wantIs: domain.ErrResultMismatch,
		},
		{
			name: "delete of missing row",
			plan: func() *domain.WritePlan {
				p := &domain.WritePlan{}
				p.Fields[domain.PartitionVersioned].Deleted = []uuid.UUID{uuid.New()}
				return p
			},
			wantIs: domain.ErrResultMismatch,
		},
		{
			name: "row routed to wrong partition",
			plan: func() *domain.WritePlan {
				p := &domain.WritePlan{}
				p.Fields[domain.PartitionVersioned].Inserted = []domain.Field{newField(a, ptr("en"), nil, "v")}
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New()
			s.PutItems(domain.Item{ID: a})
			require.NoError(t, s.PutFields(existing))

			err := s.ApplyWritePlan(context.Background(), tt.plan())
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantCode == uniqueViolation {
				assert.ErrorIs(t, err, domain.ErrConflict)
			}
			if tt.wantCode != "" {
				var se *domain.StorageError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, tt.wantCode, se.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Fault injection and seeding
// ---------------------------------------------------------------------------

func TestStore_FailOn(t *testing.T) {
	t.Parallel()

	s := New()
	cause := errors.New("disk full")
	s.FailOn("insert items", cause)

	err := s.ApplyWritePlan(context.Background(), &domain.WritePlan{InsertedItems: []domain.Item{{ID: uuid.New()}}})

	require.ErrorIs(t, err, domain.ErrStorageOperation)
	require.ErrorIs(t, err, cause)
	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "insert items", se.Op)
	assert.Empty(t, s.Ops(), "failed operation is not recorded")

	s.FailOn("insert items", nil)
	require.NoError(t, s.ApplyWritePlan(context.Background(), &domain.WritePlan{InsertedItems: []domain.Item{{ID: uuid.New()}}}))
}

func TestStore_FailOn_Reads(t *testing.T) {
	t.Parallel()

	s := New()
	s.FailOn("load versioned fields", &domain.StorageError{Op: "load versioned fields", Code: "57014"})

	_, err := s.FieldsByItemID(context.Background(), domain.PartitionVersioned, []uuid.UUID{uuid.New()})

	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "57014", se.Code)
}

func TestStore_PutFields(t *testing.T) {
	t.Parallel()

	s := New()
	f := newField(uuid.New(), nil, nil, "v")
	f.ID = uuid.Nil
	require.NoError(t, s.PutFields(f))

	stored := s.Fields(domain.PartitionShared)
	require.Len(t, stored, 1)
	assert.NotEqual(t, uuid.Nil, stored[0].ID)

	err := s.PutFields(newField(uuid.New(), nil, ptr(1), "v"))
	require.Error(t, err)
}
