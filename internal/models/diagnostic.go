package models

// Processing stages reported in diagnostics.
const (
	StageResolution = "field_resolution"
	StageParsing    = "parsing"
	StageExtraction = "extraction"
	StageCategory   = "category_mapping"
	StageCleaning   = "cleaning"
	StageAssembly   = "record_assembly"
)

// Review reasons attached to non-validated records.
const (
	ReasonMissingColumn        = "missing_required_column"
	ReasonParseFailure         = "parse_failure"
	ReasonLowConfidence        = "low_confidence"
	ReasonMissingDate          = "missing_date"
	ReasonInferenceUnavailable = "inference_unavailable"
	ReasonExcluded             = "excluded"
)

// Diagnostic explains why a row or candidate did not reach validated status,
// or why it was dropped entirely.
type Diagnostic struct {
	RowIndex int    `json:"row_index"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
	Message  string `json:"message,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
}
