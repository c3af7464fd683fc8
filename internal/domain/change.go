package domain

import "github.com/google/uuid"

// EditType classifies a reported change.
type EditType string

const (
	EditCreated   EditType = "Created"
	EditUpdated   EditType = "Updated"
	EditUnchanged EditType = "Unchanged"
)

func (e EditType) String() string { return string(e) }

// ItemChange reports how one incoming item relates to the stored row it
// replaced. Original* values are set only when the stored value differed.
type ItemChange struct {
	ID                 uuid.UUID
	EditType           EditType
	OriginalName       *string
	NewName            string
	OriginalTemplateID *uuid.UUID
	NewTemplateID      *uuid.UUID
	OriginalMasterID   *uuid.UUID
	NewMasterID        *uuid.UUID
	OriginalParentID   *uuid.UUID
	NewParentID        *uuid.UUID
}

// FieldChange reports the old and new value of one reported field row.
type FieldChange struct {
	ItemID        uuid.UUID
	FieldID       uuid.UUID
	Language      *string
	Version       *int
	Value         *string
	OriginalValue *string
	EditType      EditType
}

// Changed reports whether the value differs from the original one.
func (c FieldChange) Changed() bool {
	return !EqualStringPtr(c.Value, c.OriginalValue)
}

// ChangeReport is the result of a publishing batch.
type ChangeReport struct {
	Items  []ItemChange
	Fields []FieldChange
}

// EmptyChangeReport returns a report with empty, non-nil slices.
func EmptyChangeReport() *ChangeReport {
	return &ChangeReport{
		Items:  []ItemChange{},
		Fields: []FieldChange{},
	}
}

// Count returns the number of item and field change rows.
func (r *ChangeReport) Count() (items, fields int) {
	if r == nil {
		return 0, 0
	}
	return len(r.Items), len(r.Fields)
}
