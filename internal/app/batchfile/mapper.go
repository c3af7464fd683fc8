package batchfile

import (
	"github.com/heartmarshall/publishing-store/internal/domain"
)

// ToBatch converts a decoded batch file to a domain batch.
func ToBatch(f BatchFile) domain.VariantBatch {
	batch := domain.VariantBatch{
		Items:                     make([]domain.Item, 0, len(f.Items)),
		Fields:                    make([]domain.Field, 0, len(f.Fields)),
		SharedFieldsToReport:      f.Report.Shared,
		UnversionedFieldsToReport: f.Report.Unversioned,
		VersionedFieldsToReport:   f.Report.Versioned,
		CalculateChanges:          f.CalculateChanges,
	}

	for _, it := range f.Items {
		batch.Items = append(batch.Items, domain.Item{
			ID:         it.ID,
			Name:       it.Name,
			TemplateID: it.TemplateID,
			MasterID:   it.MasterID,
			ParentID:   it.ParentID,
			Created:    it.Created,
			Updated:    it.Updated,
		})
	}

	for _, fl := range f.Fields {
		batch.Fields = append(batch.Fields, domain.Field{
			ID:       fl.ID,
			ItemID:   fl.ItemID,
			FieldID:  fl.FieldID,
			Language: fl.Language,
			Version:  fl.Version,
			Value:    fl.Value,
			Created:  fl.Created,
			Updated:  fl.Updated,
		})
	}

	return batch
}

// FromReport converts a change report to its file form.
func FromReport(r *domain.ChangeReport) ReportFile {
	out := ReportFile{
		Items:  []ItemChangeJSON{},
		Fields: []FieldChangeJSON{},
	}
	if r == nil {
		return out
	}

	for _, c := range r.Items {
		out.Items = append(out.Items, ItemChangeJSON{
			ID:                 c.ID,
			EditType:           c.EditType.String(),
			OriginalName:       c.OriginalName,
			NewName:            c.NewName,
			OriginalTemplateID: c.OriginalTemplateID,
			NewTemplateID:      c.NewTemplateID,
			OriginalMasterID:   c.OriginalMasterID,
			NewMasterID:        c.NewMasterID,
			OriginalParentID:   c.OriginalParentID,
			NewParentID:        c.NewParentID,
		})
	}

	for _, c := range r.Fields {
		out.Fields = append(out.Fields, FieldChangeJSON{
			ItemID:        c.ItemID,
			FieldID:       c.FieldID,
			Language:      c.Language,
			Version:       c.Version,
			Value:         c.Value,
			OriginalValue: c.OriginalValue,
			EditType:      c.EditType.String(),
		})
	}

	return out
}
