package engine

import (
	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/models"
	"githubledger/ledger-adapt/internal/parsererror"
	"githubledger/ledger-adapt/internal/profile"
)

// Semantic field names used by resolution and diagnostics.
const (
	fieldDate     = "date"
	fieldAmount   = "amount"
	fieldMerchant = "merchant"
	fieldCategory = "category"
	fieldNotes    = "notes"
	fieldPlatform = "platform"
	fieldItem     = "item_name"
	fieldQuantity = "quantity"
)

// resolution binds the profile's declared columns against one batch header.
// Optional fields whose column is missing resolve to absent; required fields
// (date, amount, for the column-reading modes) that cannot bind are recorded
// so each row can be routed to review with a per-row error.
type resolution struct {
	columns map[string]string
	// missingRequired lists (field, column) pairs a column-reading mode needs
	// but the header does not carry.
	missingRequired []parsererror.FieldResolutionError
}

// resolve matches the column mapping against the header once per batch.
func resolve(mapping profile.ColumnMapping, mode profile.Mode, header []string, logger logging.Logger) *resolution {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	res := &resolution{columns: make(map[string]string, 8)}
	bind := func(field, column string, required bool) {
		if column == "" || !present[column] {
			if required {
				res.missingRequired = append(res.missingRequired,
					parsererror.FieldResolutionError{Field: field, Column: column})
			} else if column != "" {
				logger.WithFields(
					logging.Field{Key: "field", Value: field},
					logging.Field{Key: "column", Value: column},
				).Warn("Declared column not found in header; field resolves to absent")
			}
			return
		}
		res.columns[field] = column
	}

	columnModes := mode == profile.ModeStandard || mode == profile.ModeMixedNotes
	bind(fieldDate, mapping.Date, columnModes)
	bind(fieldAmount, mapping.Amount, columnModes)
	bind(fieldMerchant, mapping.Merchant, false)
	bind(fieldCategory, mapping.Category, false)
	bind(fieldNotes, mapping.Notes, false)
	bind(fieldPlatform, mapping.Platform, false)
	bind(fieldItem, mapping.Item, false)
	bind(fieldQuantity, mapping.Quantity, false)
	return res
}

// value reads a semantic field from a row. ok is false when the field has no
// bound column for this batch.
func (r *resolution) value(row models.RawRow, field string) (string, bool) {
	column, ok := r.columns[field]
	if !ok {
		return "", false
	}
	v, _ := row.Get(column)
	return v, true
}

// rowErrors materializes the batch-level missing-required bindings as
// per-row errors.
func (r *resolution) rowErrors(rowIndex int) []*parsererror.FieldResolutionError {
	if len(r.missingRequired) == 0 {
		return nil
	}
	errs := make([]*parsererror.FieldResolutionError, 0, len(r.missingRequired))
	for _, e := range r.missingRequired {
		errs = append(errs, &parsererror.FieldResolutionError{Row: rowIndex, Field: e.Field, Column: e.Column})
	}
	return errs
}
