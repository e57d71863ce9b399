// Package cleaner applies an adapter profile's data-cleaning rules: exclusion
// of non-transactions, merchant-name normalization, and tolerance-windowed
// deduplication across a whole batch.
package cleaner

import (
	"strings"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/profile"
)

// Cleaner executes one profile's cleaning rules.
type Cleaner struct {
	rules profile.DataCleaningRules
	// merchantIndex is the raw→canonical mapping keyed case-insensitively.
	merchantIndex map[string]string
	logger        logging.Logger
}

// NewCleaner builds a cleaner over validated cleaning rules.
func NewCleaner(rules profile.DataCleaningRules, logger logging.Logger) *Cleaner {
	if logger == nil {
		logger = logging.GetLogger()
	}
	index := make(map[string]string, len(rules.MerchantMappings))
	for raw, canonical := range rules.MerchantMappings {
		index[strings.ToLower(strings.TrimSpace(raw))] = canonical
	}
	return &Cleaner{rules: rules, merchantIndex: index, logger: logger}
}

// Excluded reports whether a row matches an exclusion keyword in its raw
// category or notes, returning the matched keyword for the audit log. Rows
// excluded here never become canonical records.
func (c *Cleaner) Excluded(rawCategory, notes string) (string, bool) {
	category := strings.ToLower(rawCategory)
	noteText := strings.ToLower(notes)
	for _, keyword := range c.rules.ExcludeKeywords {
		kw := strings.ToLower(keyword)
		if kw == "" {
			continue
		}
		if strings.Contains(category, kw) || strings.Contains(noteText, kw) {
			c.logger.WithFields(
				logging.Field{Key: "keyword", Value: keyword},
				logging.Field{Key: "raw_category", Value: rawCategory},
			).Debug("Row excluded by cleaning rule")
			return keyword, true
		}
	}
	return "", false
}

// NormalizeMerchant maps a raw merchant name to its canonical form via the
// profile's explicit mapping, case-insensitively. Unmapped names pass through
// unchanged; the engine never rewrites a name without a mapping entry.
func (c *Cleaner) NormalizeMerchant(name string) string {
	if name == "" {
		return name
	}
	if canonical, ok := c.merchantIndex[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return name
}
