package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// ItemsByID returns the stored items with the given ids ordered by id.
func (s *Store) ItemsByID(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure("load items"); err != nil {
		return nil, err
	}

	items := []domain.Item{}
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			items = append(items, it)
		}
	}
	slices.SortFunc(items, func(a, b domain.Item) int { return compareUUID(a.ID, b.ID) })
	return slices.CompactFunc(items, func(a, b domain.Item) bool { return a.ID == b.ID }), nil
}

// FieldsByItemID returns every stored row of partition p belonging to one of
// itemIDs, ordered by row id.
func (s *Store) FieldsByItemID(ctx context.Context, p domain.Partition, itemIDs []uuid.UUID) ([]domain.Field, error) {
	op := "load " + p.String() + " fields"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !p.IsValid() {
		return nil, fmt.Errorf("%s: unknown partition %d", op, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(op); err != nil {
		return nil, err
	}

	wanted := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}

	fields := []domain.Field{}
	for _, f := range s.fields[p] {
		if _, ok := wanted[f.ItemID]; ok {
			fields = append(fields, f)
		}
	}
	slices.SortFunc(fields, func(a, b domain.Field) int { return compareUUID(a.ID, b.ID) })
	return fields, nil
}

// ApplyWritePlan applies the plan phase by phase. A failing phase leaves the
// earlier phases applied; RunInTx discards them.
func (s *Store) ApplyWritePlan(ctx context.Context, plan *domain.WritePlan) error {
	if plan == nil || plan.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("apply write plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(plan.UpdatedItems) > 0 {
		if err := s.updateItems(plan.UpdatedItems); err != nil {
			return err
		}
	}
	if len(plan.InsertedItems) > 0 {
		if err := s.insertItems(plan.InsertedItems); err != nil {
			return err
		}
	}

	for _, p := range domain.Partitions {
		w := plan.Fields[p]
		if len(w.Updated) > 0 {
			if err := s.updateFields(p, w.Updated); err != nil {
				return err
			}
		}
		if len(w.Inserted) > 0 {
			if err := s.insertFields(p, w.Inserted); err != nil {
				return err
			}
		}
		if len(w.Deleted) > 0 {
			if err := s.deleteFields(p, w.Deleted); err != nil {
				return err
			}
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Phases (callers hold s.mu)
// ---------------------------------------------------------------------------

func (s *Store) begin(op string) error {
	if err := s.failure(op); err != nil {
		return err
	}
	s.ops = append(s.ops, op)
	return nil
}

func mismatch(op string, got, want int) error {
	return fmt.Errorf("%s: %w: %d rows affected, want %d", op, domain.ErrResultMismatch, got, want)
}

func duplicate(op, what string) error {
	return &domain.StorageError{
		Op:       op,
		Code:     uniqueViolation,
		Severity: "ERROR",
		Message:  "duplicate key value violates unique constraint: " + what,
	}
}

func (s *Store) updateItems(items []domain.Item) error {
	const op = "update items"
	if err := s.begin(op); err != nil {
		return err
	}

	affected := 0
	for _, it := range items {
		stored, ok := s.items[it.ID]
		if !ok {
			continue
		}
		stored.Name = it.Name
		stored.TemplateID = it.TemplateID
		stored.MasterID = it.MasterID
		stored.ParentID = it.ParentID
		stored.Updated = it.Updated
		s.items[it.ID] = stored
		affected++
	}
	if affected != len(items) {
		return mismatch(op, affected, len(items))
	}
	return nil
}

func (s *Store) insertItems(items []domain.Item) error {
	const op = "insert items"
	if err := s.begin(op); err != nil {
		return err
	}

	for _, it := range items {
		if _, ok := s.items[it.ID]; ok {
			return duplicate(op, "items_pkey "+it.ID.String())
		}
		s.items[it.ID] = it
	}
	return nil
}

func (s *Store) updateFields(p domain.Partition, fields []domain.Field) error {
	op := "update " + p.String() + " fields"
	if err := s.begin(op); err != nil {
		return err
	}

	rows := s.fields[p]
	affected := 0
	for _, f := range fields {
		stored, ok := rows[f.ID]
		if !ok {
			continue
		}
		stored.Value = f.Value
		stored.Updated = f.Updated
		rows[f.ID] = stored
		affected++
	}
	if affected != len(fields) {
		return mismatch(op, affected, len(fields))
	}
	return nil
}

func (s *Store) insertFields(p domain.Partition, fields []domain.Field) error {
	op := "insert " + p.String() + " fields"
	if err := s.begin(op); err != nil {
		return err
	}

	rows := s.fields[p]
	keys := make(map[domain.FieldKey]struct{}, len(rows))
	for _, stored := range rows {
		keys[stored.Key(p)] = struct{}{}
	}

	for _, f := range fields {
		if got, ok := f.Partition(); !ok || got != p {
			return fmt.Errorf("%s: field %s of item %s does not belong to the partition", op, f.FieldID, f.ItemID)
		}
		if _, ok := rows[f.ID]; ok {
			return duplicate(op, "row id "+f.ID.String())
		}
		key := f.Key(p)
		if _, ok := keys[key]; ok {
			return duplicate(op, fmt.Sprintf("natural key %v", key))
		}
		keys[key] = struct{}{}
		rows[f.ID] = f
	}
	return nil
}

func (s *Store) deleteFields(p domain.Partition, ids []uuid.UUID) error {
	op := "delete " + p.String() + " fields"
	if err := s.begin(op); err != nil {
		return err
	}

	rows := s.fields[p]
	affected := 0
	for _, id := range ids {
		if _, ok := rows[id]; ok {
			delete(rows, id)
			affected++
		}
	}
	if affected != len(ids) {
		return mismatch(op, affected, len(ids))
	}
	return nil
}
