// Package memory implements the item variant store in process memory.
// It mirrors the PostgreSQL adapter's contract (natural-key uniqueness,
// exact affected-row counts, phase order) and adds snapshot transactions
// and fault injection for tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// uniqueViolation is the SQLSTATE reported for duplicate keys, matching
// PostgreSQL.
const uniqueViolation = "23505"

// Store keeps items and the three field partitions in maps.
type Store struct {
	// txMu serializes transactions; mu guards the data itself.
	txMu sync.Mutex
	mu   sync.Mutex

	items  map[uuid.UUID]domain.Item
	fields [len(domain.Partitions)]map[uuid.UUID]domain.Field

	failures map[string]error
	ops      []string
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		items:    make(map[uuid.UUID]domain.Item),
		failures: make(map[string]error),
	}
	for i := range s.fields {
		s.fields[i] = make(map[uuid.UUID]domain.Field)
	}
	return s
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type txCtxKey struct{}

// RunInTx runs fn against a snapshot of the store. When fn returns an error
// or panics every write made by fn is discarded. Transactions are
// serialized; nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txCtxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()

	defer func() {
		if r := recover(); r != nil {
			s.restore(snapshot)
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, struct{}{})); err != nil {
		s.restore(snapshot)
		return err
	}

	return nil
}

type state struct {
	items  map[uuid.UUID]domain.Item
	fields [len(domain.Partitions)]map[uuid.UUID]domain.Field
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := state{items: maps.Clone(s.items)}
	for i := range s.fields {
		st.fields[i] = maps.Clone(s.fields[i])
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = st.items
	s.fields = st.fields
}

// ---------------------------------------------------------------------------
// Fault injection and inspection
// ---------------------------------------------------------------------------

// FailOn makes the operation named op fail with err until cleared with a
// nil err. Operation names match the PostgreSQL adapter, e.g. "load items",
// "update items", "insert shared fields", "delete versioned fields".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Ops returns the write operations applied so far, in order.
func (s *Store) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ops)
}

// ResetOps clears the recorded operations.
func (s *Store) ResetOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

// failure returns the injected error for op wrapped as a storage error.
// Callers hold s.mu.
func (s *Store) failure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &domain.StorageError{Op: op, Severity: "ERROR", Message: err.Error(), Err: err}
}

// ---------------------------------------------------------------------------
// Seeding and inspection helpers
// ---------------------------------------------------------------------------

// PutItems stores items as-is, replacing rows with the same id.
func (s *Store) PutItems(items ...domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.ID] = it
	}
}

// PutFields stores field rows as-is in their partition. A row without an id
// gets a fresh one. Rows without a valid partition are rejected.
func (s *Store) PutFields(fields ...domain.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		p, ok := f.Partition()
		if !ok {
			return fmt.Errorf("memory: field %s of item %s has no partition", f.FieldID, f.ItemID)
		}
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		s.fields[p][f.ID] = f
	}
	return nil
}

// Item returns the stored item with id.
func (s *Store) Item(id uuid.UUID) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	return it, ok
}

// ItemCount returns the number of stored items.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Field returns the stored row of partition p with the natural key of f.
func (s *Store) Field(p domain.Partition, key domain.FieldKey) (domain.Field, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.fields[p] {
		if stored.Key(p) == key {
			return stored, true
		}
	}
	return domain.Field{}, false
}

// Fields returns every stored row of partition p ordered by row id.
func (s *Store) Fields(p domain.Partition) []domain.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.fields[p]))
	slices.SortFunc(out, func(a, b domain.Field) int { return compareUUID(a.ID, b.ID) })
	return out
}

func compareUUID(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
