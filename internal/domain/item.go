package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item is a versionless content node. Name, template, master and parent are
// the mutable attributes; the ID never changes.
type Item struct {
	ID         uuid.UUID
	Name       string
	TemplateID *uuid.UUID
	MasterID   *uuid.UUID
	ParentID   *uuid.UUID
	Created    time.Time
	Updated    time.Time
}

// SameAttributes reports whether the mutable attributes of i and other are
// equal. Nil references compare equal only to nil.
func (i Item) SameAttributes(other Item) bool {
	return i.Name == other.Name &&
		EqualUUIDPtr(i.TemplateID, other.TemplateID) &&
		EqualUUIDPtr(i.MasterID, other.MasterID) &&
		EqualUUIDPtr(i.ParentID, other.ParentID)
}

// EqualUUIDPtr compares two nullable UUIDs.
func EqualUUIDPtr(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// EqualStringPtr compares two nullable strings.
func EqualStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
