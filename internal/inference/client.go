// Package inference defines the narrow interface to the external AI
// capability used by full_nlp parsing and ai_inference merchant extraction.
// The engine stays correct if the capability is swapped or stubbed; callers
// must bound every call with a timeout and treat failure as a per-row,
// recoverable condition.
package inference

import (
	"context"

	"githubledger/ledger-adapt/internal/profile"
)

// Candidate is one structured transaction proposed by the capability. All
// fields except Confidence are optional raw strings; the engine parses them
// with the same precision-preserving parsers it applies to column data.
type Candidate struct {
	Date       string
	Amount     string
	Merchant   string
	Item       string
	Confidence float64
}

// Context carries the parsing mode and extraction rules so the capability
// can ground its reading of the text.
type Context struct {
	Mode  profile.Mode
	Rules []profile.ExtractionRule
}

// Client is the inference capability. One text blob may yield zero or more
// candidates; implementations may fail or time out and must respect ctx.
type Client interface {
	Infer(ctx context.Context, text string, ic Context) ([]Candidate, error)
}
