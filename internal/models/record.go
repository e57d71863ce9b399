// Package models defines the canonical record shape all downstream analytics
// consume, plus the raw-row and diagnostic types exchanged with the engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the spend direction of a transaction.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

// Status is the review status of a canonical record.
type Status string

const (
	// StatusValidated marks records usable by analytics without human check.
	StatusValidated Status = "validated"
	// StatusPendingReview marks records awaiting human review.
	StatusPendingReview Status = "pending_review"
	// StatusFlagged is set by user action only, never by the engine.
	StatusFlagged Status = "flagged"
)

// MergedProvenance references a duplicate row that was merged into a
// surviving record during deduplication.
type MergedProvenance struct {
	SourceRowIndex int               `json:"source_row_index"`
	OriginalRow    map[string]string `json:"original_row"`
}

// CanonicalRecord is the single normalized transaction shape. Optional entity
// fields stay empty when the source has no information; they are never
// defaulted to a placeholder. OriginalRow is immutable provenance for the
// record's lifetime.
type CanonicalRecord struct {
	ID              string    `json:"id"`
	ImportTimestamp time.Time `json:"import_timestamp"`

	TransactionTime TxTime    `json:"transaction_time"`
	Amount          Amount    `json:"amount"`
	Currency        string    `json:"currency"`
	Direction       Direction `json:"direction"`

	Merchant string  `json:"merchant,omitempty"`
	Platform string  `json:"platform,omitempty"`
	ItemName string  `json:"item_name,omitempty"`
	Quantity *Amount `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`

	CategoryMain string   `json:"category_main,omitempty"`
	CategorySub  string   `json:"category_sub,omitempty"`
	Tags         []string `json:"tags,omitempty"`

	SourceFile     string            `json:"source_file"`
	SourceRowIndex int               `json:"source_row_index"`
	OriginalRow    map[string]string `json:"original_row"`

	ConfidenceScore float64 `json:"confidence_score"`
	Notes           string  `json:"notes,omitempty"`
	Status          Status  `json:"status"`
	ReviewReason    string  `json:"review_reason,omitempty"`

	MergedFrom []MergedProvenance `json:"merged_from,omitempty"`
}

// NewRecordID generates the record identity, independent of any
// source-provided id.
func NewRecordID() string {
	return uuid.NewString()
}

// NeedsReview reports whether the record requires human attention.
func (r *CanonicalRecord) NeedsReview() bool {
	return r.Status != StatusValidated
}
