package profile

import (
	"fmt"
	"regexp"

	"githubledger/ledger-adapt/internal/parsererror"
	"githubledger/ledger-adapt/internal/timeparse"
)

var validModes = map[Mode]bool{
	ModeStandard:   true,
	ModeMixedNotes: true,
	ModeFullNLP:    true,
}

var validCategoryTypes = map[CategorySystemType]bool{
	CategoryFlat:             true,
	CategoryHierarchical:     true,
	CategoryDimensionalSplit: true,
}

var validActions = map[RuleAction]bool{
	ActionExtractMerchant: true,
	ActionExtractMetadata: true,
	ActionMap:             true,
}

var validExtractionSources = map[ExtractionSource]bool{
	SourceColumn:      true,
	SourceNotes:       true,
	SourceAIInference: true,
}

// validMatchFields is the recognized dedup match-field set. "date" matches at
// calendar-date granularity, "transaction_time" at source precision.
var validMatchFields = map[string]bool{
	"amount":           true,
	"transaction_time": true,
	"date":             true,
	"merchant":         true,
	"item_name":        true,
	"platform":         true,
	"currency":         true,
}

// Validate checks a candidate profile against the schema contract and returns
// either nil (accepted) or a ProfileValidationError listing every violated
// constraint. An invalid profile is never partially applied.
func Validate(p *AdapterProfile) error {
	var violations []string
	add := func(format string, args ...interface{}) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if !validModes[p.ParsingStrategy.Mode] {
		add("parsing_strategy.mode: unrecognized mode %q", p.ParsingStrategy.Mode)
	}
	if p.ParsingStrategy.DateFormat != "" {
		if _, _, err := timeparse.StrptimeToLayout(p.ParsingStrategy.DateFormat); err != nil {
			add("parsing_strategy.date_format: %v", err)
		}
	}
	if p.ParsingStrategy.CurrencyDefault != "" && len(p.ParsingStrategy.CurrencyDefault) != 3 {
		add("parsing_strategy.currency_default: %q is not an ISO 4217 code", p.ParsingStrategy.CurrencyDefault)
	}

	me := p.ParsingStrategy.MerchantExtraction
	if me.Enabled && !validExtractionSources[me.Source] {
		add("merchant_extraction.source: unrecognized source %q", me.Source)
	}
	// rules are checked even when extraction is disabled: declared rules are
	// always compiled, so a malformed one must surface here
	for i, rule := range me.Rules {
		if !validActions[rule.Action] {
			add("merchant_extraction.rules[%d].action: unrecognized action %q", i, rule.Action)
		}
		if rule.Pattern == "" && len(rule.Keywords) == 0 {
			add("merchant_extraction.rules[%d]: neither pattern nor keywords set", i)
		}
		if rule.Pattern != "" {
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				add("merchant_extraction.rules[%d].pattern: %v", i, err)
			}
		}
	}

	if !validCategoryTypes[p.CategorySystem.Type] {
		add("category_system.type: unrecognized type %q", p.CategorySystem.Type)
	}
	if p.CategorySystem.Type == CategoryHierarchical && p.CategorySystem.PathSeparator == "" {
		add("category_system.path_separator: required for hierarchical category system")
	}
	for raw, m := range p.CategorySystem.Mapping {
		if p.CategorySystem.Type != CategoryDimensionalSplit && m.CategoryMain == "" {
			add("category_system.category_mapping[%q]: category_main is empty", raw)
		}
	}

	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		add("confidence_threshold: %v outside [0,1]", p.ConfidenceThreshold)
	}

	dd := p.DataCleaning.Dedup
	if dd.TimeToleranceSeconds < 0 {
		add("deduplication.time_tolerance_seconds: must be >= 0, got %d", dd.TimeToleranceSeconds)
	}
	if dd.Enabled {
		seen := map[string]bool{}
		for _, f := range dd.MatchFields {
			if !validMatchFields[f] {
				add("deduplication.match_fields: unrecognized field %q", f)
			}
			if seen[f] {
				add("deduplication.match_fields: field %q listed twice", f)
			}
			seen[f] = true
		}
		// date and transaction_time disagree on granularity; listing both is
		// the configuration error §7 surfaces at validation time.
		if seen["date"] && seen["transaction_time"] {
			conflict := &parsererror.ConfigConflictError{
				Field:  "deduplication.match_fields",
				Reason: "cannot list both 'date' and 'transaction_time'",
			}
			add("%v", conflict)
		}
		if len(dd.MatchFields) == 0 {
			add("deduplication.match_fields: empty with deduplication enabled")
		}
	}

	if len(violations) > 0 {
		return &parsererror.ProfileValidationError{Violations: violations}
	}
	return nil
}
