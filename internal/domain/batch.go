package domain

import "github.com/google/uuid"

// VariantBatch is the full set of item and field states a caller wants
// committed in one transaction.
type VariantBatch struct {
	Items  []Item
	Fields []Field

	// Field ids whose changes are reported, per partition. An empty set
	// disables reporting for that partition.
	SharedFieldsToReport      []uuid.UUID
	UnversionedFieldsToReport []uuid.UUID
	VersionedFieldsToReport   []uuid.UUID

	CalculateChanges bool
}

// FieldsToReport returns the report set of partition p.
func (b VariantBatch) FieldsToReport(p Partition) []uuid.UUID {
	switch p {
	case PartitionShared:
		return b.SharedFieldsToReport
	case PartitionUnversioned:
		return b.UnversionedFieldsToReport
	case PartitionVersioned:
		return b.VersionedFieldsToReport
	}
	return nil
}

// WritePlan is the ordered set of writes produced by the merge. Storage
// adapters apply it in this order: item updates, item inserts, then per
// partition (Shared, Unversioned, Versioned) updates, inserts and deletes.
type WritePlan struct {
	UpdatedItems  []Item
	InsertedItems []Item
	Fields        [len(Partitions)]PartitionWrites
}

// PartitionWrites holds the field writes of one partition.
type PartitionWrites struct {
	// Updated rows carry the stored row id with the new value and timestamp.
	Updated  []Field
	Inserted []Field
	// Deleted holds stored row ids.
	Deleted []uuid.UUID
}

// Empty reports whether the partition has nothing to write.
func (w PartitionWrites) Empty() bool {
	return len(w.Updated) == 0 && len(w.Inserted) == 0 && len(w.Deleted) == 0
}

// Empty reports whether the plan writes nothing at all.
func (p *WritePlan) Empty() bool {
	if len(p.UpdatedItems) > 0 || len(p.InsertedItems) > 0 {
		return false
	}
	for _, w := range p.Fields {
		if !w.Empty() {
			return false
		}
	}
	return true
}

// WriteStats summarizes a plan for logging.
type WriteStats struct {
	ItemsUpdated   int
	ItemsInserted  int
	FieldsUpdated  int
	FieldsInserted int
	FieldsDeleted  int
}

// Stats counts the rows the plan touches.
func (p *WritePlan) Stats() WriteStats {
	s := WriteStats{
		ItemsUpdated:  len(p.UpdatedItems),
		ItemsInserted: len(p.InsertedItems),
	}
	for _, w := range p.Fields {
		s.FieldsUpdated += len(w.Updated)
		s.FieldsInserted += len(w.Inserted)
		s.FieldsDeleted += len(w.Deleted)
	}
	return s
}
