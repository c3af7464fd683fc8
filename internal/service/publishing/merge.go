package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// AddOrUpdateVariants merges batch into the store and, when
// batch.CalculateChanges is set, reports what the merge changed.
//
// Item updates run before item inserts, then each field partition in the
// order Shared, Unversioned, Versioned gets its updates, inserts and deletes.
// Field rows are deleted only inside the boundary drawn by the marker field
// rows of the batch. Change rows are captured before any write and rows
// whose value equals the original value are left out.
//
// The engine does not commit: ctx must carry the caller's transaction for
// the merge to be atomic. On error no report is returned.
func (e *Engine) AddOrUpdateVariants(ctx context.Context, batch domain.VariantBatch) (*domain.ChangeReport, error) {
	sb, err := stage(batch, e.markerFieldID, e.now().UTC())
	if err != nil {
		return nil, err
	}

	plan := &domain.WritePlan{}
	report := domain.EmptyChangeReport()

	// Items.
	stored, err := e.store.ItemsByID(ctx, sb.itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	storedItems := make(map[uuid.UUID]domain.Item, len(stored))
	for _, it := range stored {
		storedItems[it.ID] = it
	}

	for _, it := range sb.items {
		old, exists := storedItems[it.ID]
		if batch.CalculateChanges {
			report.Items = append(report.Items, itemChange(it, old, exists))
		}

		switch {
		case !exists:
			plan.InsertedItems = append(plan.InsertedItems, it)
		case !old.SameAttributes(it):
			plan.UpdatedItems = append(plan.UpdatedItems, it)
		}
	}

	// Fields, one partition at a time.
	for _, p := range domain.Partitions {
		var reportSet map[uuid.UUID]struct{}
		if batch.CalculateChanges {
			reportSet = idSet(batch.FieldsToReport(p))
		}

		changes, err := e.mergePartition(ctx, sb, p, reportSet, &plan.Fields[p])
		if err != nil {
			return nil, err
		}
		report.Fields = append(report.Fields, changes...)
	}

	stats := plan.Stats()
	e.log.DebugContext(ctx, "write plan built",
		slog.Int("items_updated", stats.ItemsUpdated),
		slog.Int("items_inserted", stats.ItemsInserted),
		slog.Int("fields_updated", stats.FieldsUpdated),
		slog.Int("fields_inserted", stats.FieldsInserted),
		slog.Int("fields_deleted", stats.FieldsDeleted),
	)

	if err := e.store.ApplyWritePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("apply write plan: %w", err)
	}

	report.Fields = changedOnly(report.Fields)
	return report, nil
}

// mergePartition diffs the incoming rows of partition p against the stored
// ones, fills w and returns the change rows for the fields in reportSet.
func (e *Engine) mergePartition(
	ctx context.Context,
	sb *stagedBatch,
	p domain.Partition,
	reportSet map[uuid.UUID]struct{},
	w *domain.PartitionWrites,
) ([]domain.FieldChange, error) {
	scope := sb.loadScope(p)
	if len(scope) == 0 {
		return nil, nil
	}

	stored, err := e.store.FieldsByItemID(ctx, p, scope)
	if err != nil {
		return nil, fmt.Errorf("load %s fields: %w", p, err)
	}
	byKey := make(map[domain.FieldKey]domain.Field, len(stored))
	for _, f := range stored {
		byKey[f.Key(p)] = f
	}

	var changes []domain.FieldChange
	for _, in := range sb.fields[p] {
		old, exists := byKey[in.key]

		if _, ok := reportSet[in.FieldID]; ok {
			changes = append(changes, fieldChange(in.Field, old, exists))
		}

		switch {
		case !exists:
			w.Inserted = append(w.Inserted, in.Field)
		case !domain.EqualStringPtr(old.Value, in.Value):
			w.Updated = append(w.Updated, domain.Field{
				ID:       old.ID,
				ItemID:   old.ItemID,
				FieldID:  old.FieldID,
				Language: old.Language,
				Version:  old.Version,
				Value:    in.Value,
				Created:  old.Created,
				Updated:  in.Updated,
			})
		}
	}

	for _, f := range stored {
		if sb.hasKey(p, f.Key(p)) || !sb.uris.covers(p, f) {
			continue
		}
		w.Deleted = append(w.Deleted, f.ID)
	}

	return changes, nil
}

// ---------------------------------------------------------------------------
// Change rows
// ---------------------------------------------------------------------------

func itemChange(in, old domain.Item, exists bool) domain.ItemChange {
	c := domain.ItemChange{
		ID:            in.ID,
		EditType:      domain.EditCreated,
		NewName:       in.Name,
		NewTemplateID: in.TemplateID,
		NewMasterID:   in.MasterID,
		NewParentID:   in.ParentID,
	}
	if !exists {
		return c
	}

	c.EditType = domain.EditUpdated
	if old.Name != in.Name {
		name := old.Name
		c.OriginalName = &name
	}
	if !domain.EqualUUIDPtr(old.TemplateID, in.TemplateID) {
		c.OriginalTemplateID = old.TemplateID
	}
	if !domain.EqualUUIDPtr(old.MasterID, in.MasterID) {
		c.OriginalMasterID = old.MasterID
	}
	if !domain.EqualUUIDPtr(old.ParentID, in.ParentID) {
		c.OriginalParentID = old.ParentID
	}
	return c
}

func fieldChange(in, old domain.Field, exists bool) domain.FieldChange {
	c := domain.FieldChange{
		ItemID:   in.ItemID,
		FieldID:  in.FieldID,
		Language: in.Language,
		Version:  in.Version,
		Value:    in.Value,
		EditType: domain.EditCreated,
	}
	if !exists {
		return c
	}

	c.OriginalValue = old.Value
	if domain.EqualStringPtr(old.Value, in.Value) {
		c.EditType = domain.EditUnchanged
	} else {
		c.EditType = domain.EditUpdated
	}
	return c
}

// changedOnly drops rows whose value equals the original value. The result
// is never nil.
func changedOnly(rows []domain.FieldChange) []domain.FieldChange {
	out := make([]domain.FieldChange, 0, len(rows))
	for _, c := range rows {
		if c.Changed() {
			out = append(out, c)
		}
	}
	return out
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// stampTimes fills zero timestamps with now.
func stampTimes(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}
