// Package profile defines the adapter profile: the declarative, per-source
// configuration an external collaborator produces and this engine applies.
// The engine only validates and applies profiles; it never generates or
// mutates one. The free-form document shape becomes closed, typed variants
// here so an invalid mode/type combination can never reach row processing.
package profile

// Mode selects how rows of a source are interpreted.
type Mode string

const (
	// ModeStandard reads every semantic field from its own column.
	ModeStandard Mode = "standard"
	// ModeMixedNotes reads known columns and extracts entities buried in the
	// notes column.
	ModeMixedNotes Mode = "mixed_notes"
	// ModeFullNLP hands the whole row to the inference capability, which may
	// return zero or more transactions.
	ModeFullNLP Mode = "full_nlp"
)

// CategorySystemType selects the semantics of the category mapping table.
type CategorySystemType string

const (
	CategoryFlat             CategorySystemType = "flat"
	CategoryHierarchical     CategorySystemType = "hierarchical"
	CategoryDimensionalSplit CategorySystemType = "dimensional_split"
)

// RuleAction is what an extraction rule does with its match.
type RuleAction string

const (
	// ActionExtractMerchant populates the merchant field from the match.
	ActionExtractMerchant RuleAction = "extract_as_merchant"
	// ActionExtractMetadata strips the match from residual notes without
	// populating merchant.
	ActionExtractMetadata RuleAction = "extract_as_metadata"
	// ActionMap rewrites the match via the rule's replacement value.
	ActionMap RuleAction = "map"
)

// ExtractionSource selects where merchant information comes from.
type ExtractionSource string

const (
	SourceColumn      ExtractionSource = "column"
	SourceNotes       ExtractionSource = "notes"
	SourceAIInference ExtractionSource = "ai_inference"
)

// ColumnMapping maps semantic fields to source column names. Date and amount
// are required for standard and mixed_notes modes; everything else is
// optional and absent columns simply resolve to absent fields.
type ColumnMapping struct {
	Date     string `json:"date_column" yaml:"date_column"`
	Amount   string `json:"amount_column" yaml:"amount_column"`
	Merchant string `json:"merchant_column,omitempty" yaml:"merchant_column,omitempty"`
	Category string `json:"category_column,omitempty" yaml:"category_column,omitempty"`
	Notes    string `json:"notes_column,omitempty" yaml:"notes_column,omitempty"`
	Platform string `json:"platform_column,omitempty" yaml:"platform_column,omitempty"`
	Item     string `json:"item_column,omitempty" yaml:"item_column,omitempty"`
	Quantity string `json:"quantity_column,omitempty" yaml:"quantity_column,omitempty"`
}

// ExtractionRule is one ordered rule applied to notes text. Pattern is a
// regular expression; Keywords is an alternative literal keyword set. Exactly
// one of the two should be set. Replace is used by the map action.
type ExtractionRule struct {
	Pattern  string     `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Keywords []string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Action   RuleAction `json:"action" yaml:"action"`
	Replace  string     `json:"replace,omitempty" yaml:"replace,omitempty"`
}

// MerchantExtraction configures how merchants are pulled out of free text.
type MerchantExtraction struct {
	Enabled bool             `json:"enabled" yaml:"enabled"`
	Source  ExtractionSource `json:"source" yaml:"source"`
	Rules   []ExtractionRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// ParsingStrategy configures row interpretation for one source.
type ParsingStrategy struct {
	Mode Mode `json:"mode" yaml:"mode"`
	// DateFormat uses strptime directives, e.g. "%Y年%m月%d日".
	DateFormat         string             `json:"date_format,omitempty" yaml:"date_format,omitempty"`
	CurrencyDefault    string             `json:"currency_default,omitempty" yaml:"currency_default,omitempty"`
	MerchantExtraction MerchantExtraction `json:"merchant_extraction" yaml:"merchant_extraction"`
}

// CategoryMapping is the target of one raw category string.
type CategoryMapping struct {
	CategoryMain string   `json:"category_main" yaml:"category_main"`
	CategorySub  string   `json:"category_sub,omitempty" yaml:"category_sub,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// CategorySystem configures how raw categories translate to the standard
// category and tag space.
type CategorySystem struct {
	Type    CategorySystemType         `json:"type" yaml:"type"`
	Mapping map[string]CategoryMapping `json:"category_mapping" yaml:"category_mapping"`
	// PathSeparator splits hierarchical raw categories ("餐饮.咖啡").
	PathSeparator string `json:"path_separator,omitempty" yaml:"path_separator,omitempty"`
	// KeywordFallback infers category_main from item/merchant text when a
	// dimensional_split mapping leaves it ambiguous. Keys are keywords,
	// values are category_main names. Tags are never inferred from here.
	KeywordFallback map[string]string `json:"keyword_fallback,omitempty" yaml:"keyword_fallback,omitempty"`
}

// DedupSpec configures tolerance-windowed duplicate detection.
type DedupSpec struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	MatchFields []string `json:"match_fields,omitempty" yaml:"match_fields,omitempty"`
	// TimeToleranceSeconds is the sliding window within which time-sorted
	// candidates merge transitively.
	TimeToleranceSeconds int `json:"time_tolerance_seconds" yaml:"time_tolerance_seconds"`
	// DateOnlyMatch makes cross-precision time comparison permissive: a
	// date-only value and a timestamp on the same calendar date compare
	// equal. Off by default (strict, type-aware comparison).
	DateOnlyMatch bool `json:"date_only_match,omitempty" yaml:"date_only_match,omitempty"`
}

// DataCleaningRules configures exclusion, merchant normalization and dedup.
type DataCleaningRules struct {
	ExcludeKeywords  []string          `json:"exclude_transactions,omitempty" yaml:"exclude_transactions,omitempty"`
	MerchantMappings map[string]string `json:"merchant_mappings,omitempty" yaml:"merchant_mappings,omitempty"`
	Dedup            DedupSpec         `json:"deduplication" yaml:"deduplication"`
}

// SourceFileInfo describes a file the profile was generated from. Carried
// opaquely for audit; the engine never reads these files.
type SourceFileInfo struct {
	FileName   string `json:"file_name" yaml:"file_name"`
	FileHash   string `json:"file_hash" yaml:"file_hash"`
	SampleRows int    `json:"sample_rows,omitempty" yaml:"sample_rows,omitempty"`
}

// AdapterProfile is the full per-source configuration. Read-only once
// validated.
type AdapterProfile struct {
	UserID         string           `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	ProfileVersion string           `json:"profile_version,omitempty" yaml:"profile_version,omitempty"`
	SourceFiles    []SourceFileInfo `json:"source_files,omitempty" yaml:"source_files,omitempty"`

	ColumnMapping   ColumnMapping     `json:"column_mapping" yaml:"column_mapping"`
	ParsingStrategy ParsingStrategy   `json:"parsing_strategy" yaml:"parsing_strategy"`
	CategorySystem  CategorySystem    `json:"category_system" yaml:"category_system"`
	DataCleaning    DataCleaningRules `json:"data_cleaning_rules" yaml:"data_cleaning_rules"`

	// ConfidenceThreshold gates auto-validation: records below it are routed
	// to pending_review. A zero value is treated as unset and replaced with
	// DefaultConfidenceThreshold; profiles that want to accept every record
	// must use a small positive threshold instead.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// Defaults mirrored from the profile schema.
const (
	DefaultCurrency            = "CNY"
	DefaultConfidenceThreshold = 0.8
	SchemaVersion              = "2.0"
)

// DefaultExcludeKeywords are applied when a profile does not declare its own
// exclusion set.
var DefaultExcludeKeywords = []string{"transfer", "repayment", "redpacket"}

// DefaultDedupMatchFields are applied when dedup is enabled without an
// explicit match-field set.
var DefaultDedupMatchFields = []string{"amount", "transaction_time", "merchant"}

// ApplyDefaults fills schema defaults into unset fields. Called by the
// loaders before validation.
func (p *AdapterProfile) ApplyDefaults() {
	if p.ProfileVersion == "" {
		p.ProfileVersion = SchemaVersion
	}
	if p.ParsingStrategy.CurrencyDefault == "" {
		p.ParsingStrategy.CurrencyDefault = DefaultCurrency
	}
	// zero threshold means unset, never "review everything"
	if p.ConfidenceThreshold == 0 {
		p.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if p.DataCleaning.ExcludeKeywords == nil {
		p.DataCleaning.ExcludeKeywords = append([]string{}, DefaultExcludeKeywords...)
	}
	if p.DataCleaning.Dedup.Enabled && len(p.DataCleaning.Dedup.MatchFields) == 0 {
		p.DataCleaning.Dedup.MatchFields = append([]string{}, DefaultDedupMatchFields...)
	}
}
