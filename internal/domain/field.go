package domain

import (
	"time"

	"github.com/google/uuid"
)

// Partition is the storage family a field value belongs to. It is derived
// from the nullability of the field's language and version.
type Partition int

const (
	PartitionShared      Partition = iota // language = null, version = null
	PartitionUnversioned                  // language set, version = null
	PartitionVersioned                    // language set, version set
)

// Partitions lists all partitions in the order they are merged.
var Partitions = [...]Partition{PartitionShared, PartitionUnversioned, PartitionVersioned}

func (p Partition) String() string {
	switch p {
	case PartitionShared:
		return "shared"
	case PartitionUnversioned:
		return "unversioned"
	case PartitionVersioned:
		return "versioned"
	}
	return "unknown"
}

func (p Partition) IsValid() bool {
	return p >= PartitionShared && p <= PartitionVersioned
}

// Field is one stored field value of an item.
type Field struct {
	// ID is the synthetic row id.
	ID       uuid.UUID
	ItemID   uuid.UUID
	FieldID  uuid.UUID
	Language *string
	Version  *int
	Value    *string
	Created  time.Time
	Updated  time.Time
}

// Partition derives the storage partition of the field. ok is false for a
// versioned value without a language, which has no partition.
func (f Field) Partition() (p Partition, ok bool) {
	switch {
	case f.Language == nil && f.Version == nil:
		return PartitionShared, true
	case f.Language != nil && f.Version == nil:
		return PartitionUnversioned, true
	case f.Language != nil && f.Version != nil:
		return PartitionVersioned, true
	}
	return 0, false
}

// Key returns the natural key of the field within partition p. Components
// that are not part of the partition's key are left zero.
func (f Field) Key(p Partition) FieldKey {
	k := FieldKey{ItemID: f.ItemID, FieldID: f.FieldID}
	if p >= PartitionUnversioned && f.Language != nil {
		k.Language = *f.Language
	}
	if p == PartitionVersioned && f.Version != nil {
		k.Version = *f.Version
	}
	return k
}

// FieldKey is the natural key of a field row inside its partition.
type FieldKey struct {
	ItemID   uuid.UUID
	FieldID  uuid.UUID
	Language string
	Version  int
}

// URI identifies one (item, language, version) variant touched by a batch.
// Language and Version stay nil when the marker row carried none.
type URI struct {
	ItemID   uuid.UUID
	Language *string
	Version  *int
}

// LanguageScope is the (item, language) pair used to scope unversioned deletes.
type LanguageScope struct {
	ItemID   uuid.UUID
	Language string
}

// VersionScope is the (item, language, version) triple used to scope
// versioned deletes.
type VersionScope struct {
	ItemID   uuid.UUID
	Language string
	Version  int
}
