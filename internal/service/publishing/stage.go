package publishing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/publishing-store/internal/domain"
)

// stagedField is an incoming field with its natural key resolved once at
// staging.
type stagedField struct {
	domain.Field
	key domain.FieldKey
}

// stagedBatch is the validated, keyed form of a VariantBatch.
type stagedBatch struct {
	items   []domain.Item
	itemIDs []uuid.UUID

	// Incoming fields per partition, in input order, and their key index.
	fields [len(domain.Partitions)][]stagedField
	keys   [len(domain.Partitions)]map[domain.FieldKey]struct{}

	uris uriSet
}

// uriSet is the deletion boundary of a batch, derived from the marker field
// rows at the granularity each partition needs.
type uriSet struct {
	items     map[uuid.UUID]struct{}
	languages map[domain.LanguageScope]struct{}
	versions  map[domain.VersionScope]struct{}
}

func newURISet() uriSet {
	return uriSet{
		items:     make(map[uuid.UUID]struct{}),
		languages: make(map[domain.LanguageScope]struct{}),
		versions:  make(map[domain.VersionScope]struct{}),
	}
}

func (u uriSet) add(uri domain.URI) {
	u.items[uri.ItemID] = struct{}{}
	if uri.Language == nil {
		return
	}
	u.languages[domain.LanguageScope{ItemID: uri.ItemID, Language: *uri.Language}] = struct{}{}
	if uri.Version != nil {
		u.versions[domain.VersionScope{ItemID: uri.ItemID, Language: *uri.Language, Version: *uri.Version}] = struct{}{}
	}
}

// covers reports whether the stored row f of partition p lies inside the
// deletion boundary: Shared by item, Unversioned by (item, language),
// Versioned by (item, language, version).
func (u uriSet) covers(p domain.Partition, f domain.Field) bool {
	switch p {
	case domain.PartitionShared:
		_, ok := u.items[f.ItemID]
		return ok
	case domain.PartitionUnversioned:
		if f.Language == nil {
			return false
		}
		_, ok := u.languages[domain.LanguageScope{ItemID: f.ItemID, Language: *f.Language}]
		return ok
	case domain.PartitionVersioned:
		if f.Language == nil || f.Version == nil {
			return false
		}
		_, ok := u.versions[domain.VersionScope{ItemID: f.ItemID, Language: *f.Language, Version: *f.Version}]
		return ok
	}
	return false
}

// itemIDs returns the ids of the items whose rows of partition p may be
// deleted.
func (u uriSet) itemIDs(p domain.Partition) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	switch p {
	case domain.PartitionShared:
		seen = u.items
	case domain.PartitionUnversioned:
		for s := range u.languages {
			seen[s.ItemID] = struct{}{}
		}
	case domain.PartitionVersioned:
		for s := range u.versions {
			seen[s.ItemID] = struct{}{}
		}
	}

	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids
}

// stage validates the batch and builds its keyed form. Every problem found
// is reported in one *domain.ValidationError; nothing touches storage.
// Zero timestamps are set to now and fields without a row id get a new one.
func stage(batch domain.VariantBatch, markerFieldID uuid.UUID, now time.Time) (*stagedBatch, error) {
	var errs []domain.FieldError
	fail := func(field, msg string) {
		errs = append(errs, domain.FieldError{Field: field, Message: msg})
	}

	sb := &stagedBatch{
		items:   make([]domain.Item, 0, len(batch.Items)),
		itemIDs: make([]uuid.UUID, 0, len(batch.Items)),
		uris:    newURISet(),
	}
	for i := range sb.keys {
		sb.keys[i] = make(map[domain.FieldKey]struct{})
	}

	seenItems := make(map[uuid.UUID]struct{}, len(batch.Items))
	for i, it := range batch.Items {
		name := fmt.Sprintf("items[%d]", i)
		if it.ID == uuid.Nil {
			fail(name+".id", "required")
			continue
		}
		if _, dup := seenItems[it.ID]; dup {
			fail(name+".id", "duplicate item "+it.ID.String())
			continue
		}
		seenItems[it.ID] = struct{}{}
		stampTimes(&it.Created, &it.Updated, now)
		sb.items = append(sb.items, it)
		sb.itemIDs = append(sb.itemIDs, it.ID)
	}

	for i, f := range batch.Fields {
		name := fmt.Sprintf("fields[%d]", i)
		if f.ItemID == uuid.Nil {
			fail(name+".item_id", "required")
			continue
		}
		if f.FieldID == uuid.Nil {
			fail(name+".field_id", "required")
			continue
		}
		if f.Language != nil && strings.TrimSpace(*f.Language) == "" {
			fail(name+".language", "must not be empty")
			continue
		}
		p, ok := f.Partition()
		if !ok {
			fail(name+".version", "version set without language")
			continue
		}
		if f.Version != nil && (*f.Version < 1 || *f.Version > math.MaxInt32) {
			fail(name+".version", fmt.Sprintf("must be between 1 and %d", math.MaxInt32))
			continue
		}

		key := f.Key(p)
		if _, dup := sb.keys[p][key]; dup {
			fail(name, fmt.Sprintf("duplicate %s field %s on item %s", p, f.FieldID, f.ItemID))
			continue
		}
		sb.keys[p][key] = struct{}{}

		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		stampTimes(&f.Created, &f.Updated, now)
		sb.fields[p] = append(sb.fields[p], stagedField{Field: f, key: key})

		if f.FieldID == markerFieldID {
			sb.uris.add(domain.URI{ItemID: f.ItemID, Language: f.Language, Version: f.Version})
		}
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	return sb, nil
}

// loadScope returns the item ids whose stored rows of partition p the merge
// needs: items with incoming rows of p plus items inside the deletion
// boundary of p.
func (sb *stagedBatch) loadScope(p domain.Partition) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, f := range sb.fields[p] {
		add(f.ItemID)
	}
	for _, id := range sb.uris.itemIDs(p) {
		add(id)
	}
	return ids
}

func (sb *stagedBatch) hasKey(p domain.Partition, key domain.FieldKey) bool {
	_, ok := sb.keys[p][key]
	return ok
}
