// Package batchfile reads publishing batches from JSON files and writes
// change reports back as JSON.
package batchfile

import (
	"time"

	"github.com/google/uuid"
)

// BatchFile is the on-disk form of a publishing batch.
type BatchFile struct {
	Items            []ItemJSON  `json:"items"`
	Fields           []FieldJSON `json:"fields"`
	Report           ReportSets  `json:"report"`
	CalculateChanges bool        `json:"calculate_changes"`
}

// ReportSets lists the field ids whose changes are reported per partition.
type ReportSets struct {
	Shared      []uuid.UUID `json:"shared"`
	Unversioned []uuid.UUID `json:"unversioned"`
	Versioned   []uuid.UUID `json:"versioned"`
}

type ItemJSON struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
	MasterID   *uuid.UUID `json:"master_id,omitempty"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Created    time.Time  `json:"created,omitzero"`
	Updated    time.Time  `json:"updated,omitzero"`
}

type FieldJSON struct {
	ID       uuid.UUID `json:"id,omitzero"`
	ItemID   uuid.UUID `json:"item_id"`
	FieldID  uuid.UUID `json:"field_id"`
	Language *string   `json:"language,omitempty"`
	Version  *int      `json:"version,omitempty"`
	Value    *string   `json:"value"`
	Created  time.Time `json:"created,omitzero"`
	Updated  time.Time `json:"updated,omitzero"`
}

// ReportFile is the on-disk form of a change report.
type ReportFile struct {
	Items  []ItemChangeJSON  `json:"items"`
	Fields []FieldChangeJSON `json:"fields"`
}

type ItemChangeJSON struct {
	ID                 uuid.UUID  `json:"id"`
	EditType           string     `json:"edit_type"`
	OriginalName       *string    `json:"original_name"`
	NewName            string     `json:"new_name"`
	OriginalTemplateID *uuid.UUID `json:"original_template_id"`
	NewTemplateID      *uuid.UUID `json:"new_template_id"`
	OriginalMasterID   *uuid.UUID `json:"original_master_id"`
	NewMasterID        *uuid.UUID `json:"new_master_id"`
	OriginalParentID   *uuid.UUID `json:"original_parent_id"`
	NewParentID        *uuid.UUID `json:"new_parent_id"`
}

type FieldChangeJSON struct {
	ItemID        uuid.UUID `json:"item_id"`
	FieldID       uuid.UUID `json:"field_id"`
	Language      *string   `json:"language"`
	Version       *int      `json:"version"`
	Value         *string   `json:"value"`
	OriginalValue *string   `json:"original_value"`
	EditType      string    `json:"edit_type"`
}
