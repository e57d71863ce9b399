// Package categorymap translates a source's raw category string into the
// standard (category_main, category_sub, tags) space using one of three
// table semantics: flat, hierarchical, dimensional_split.
package categorymap

import (
	"sort"
	"strings"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/profile"
)

// Mapping confidences. Explicit table hits are fully trusted; a path split
// without a table entry slightly less; keyword-inferred mains less again;
// unknown raw categories leave category_main null at low confidence.
const (
	ConfidenceTable    = 1.0
	ConfidencePath     = 0.9
	ConfidenceInferred = 0.75
	ConfidenceUnknown  = 0.6
)

// Result is the mapped classification of one transaction. Main may be empty
// (null propagation for unmapped keys); a record never receives more than
// one main/sub pair.
type Result struct {
	Main       string
	Sub        string
	Tags       []string
	Confidence float64
}

// Mapper executes one profile's category system. The table is loaded once;
// lookups are case-insensitive the same way merchant mappings are.
type Mapper struct {
	system profile.CategorySystem
	index  map[string]profile.CategoryMapping
	// fallbackKeys is the keyword fallback in sorted order so inference is
	// deterministic when several keywords match.
	fallbackKeys []string
	logger       logging.Logger
}

// NewMapper builds a mapper over a validated category system.
func NewMapper(system profile.CategorySystem, logger logging.Logger) *Mapper {
	if logger == nil {
		logger = logging.GetLogger()
	}
	index := make(map[string]profile.CategoryMapping, len(system.Mapping))
	for raw, m := range system.Mapping {
		index[strings.ToLower(strings.TrimSpace(raw))] = m
	}
	fallbackKeys := make([]string, 0, len(system.KeywordFallback))
	for keyword := range system.KeywordFallback {
		if keyword != "" {
			fallbackKeys = append(fallbackKeys, keyword)
		}
	}
	sort.Strings(fallbackKeys)
	return &Mapper{system: system, index: index, fallbackKeys: fallbackKeys, logger: logger}
}

// Map translates rawCategory. merchant and item feed the keyword fallback
// used by dimensional_split when the table leaves category_main ambiguous;
// tags always come from the explicit mapping and are never inferred.
func (m *Mapper) Map(rawCategory, merchant, item string) Result {
	raw := strings.TrimSpace(rawCategory)

	switch m.system.Type {
	case profile.CategoryHierarchical:
		return m.mapHierarchical(raw)
	case profile.CategoryDimensionalSplit:
		return m.mapDimensional(raw, merchant, item)
	default:
		return m.mapFlat(raw)
	}
}

func (m *Mapper) lookup(raw string) (profile.CategoryMapping, bool) {
	entry, ok := m.index[strings.ToLower(raw)]
	return entry, ok
}

func (m *Mapper) mapFlat(raw string) Result {
	if entry, ok := m.lookup(raw); ok {
		return Result{
			Main:       entry.CategoryMain,
			Sub:        entry.CategorySub,
			Tags:       append([]string{}, entry.Tags...),
			Confidence: ConfidenceTable,
		}
	}
	if raw != "" {
		m.logger.WithField("raw_category", raw).Debug("Unmapped raw category")
	}
	return Result{Confidence: ConfidenceUnknown}
}

// mapHierarchical splits the raw category on the declared path separator; an
// explicit table entry for the full raw string still overrides the split.
func (m *Mapper) mapHierarchical(raw string) Result {
	if entry, ok := m.lookup(raw); ok {
		return Result{
			Main:       entry.CategoryMain,
			Sub:        entry.CategorySub,
			Tags:       append([]string{}, entry.Tags...),
			Confidence: ConfidenceTable,
		}
	}
	if raw == "" {
		return Result{Confidence: ConfidenceUnknown}
	}

	parts := strings.SplitN(raw, m.system.PathSeparator, 2)
	res := Result{Main: strings.TrimSpace(parts[0]), Confidence: ConfidencePath}
	if len(parts) == 2 {
		res.Sub = strings.TrimSpace(parts[1])
	}
	return res
}

// mapDimensional resolves a raw category that conflates an object/person axis
// with a spending-type axis. The table supplies (main, tags); when main is
// ambiguous the spending type is inferred from item/merchant keywords, while
// tags stay exactly as the table declared them.
func (m *Mapper) mapDimensional(raw, merchant, item string) Result {
	entry, ok := m.lookup(raw)
	if !ok {
		if raw != "" {
			m.logger.WithField("raw_category", raw).Debug("Unmapped raw category")
		}
		return Result{Confidence: ConfidenceUnknown}
	}

	res := Result{
		Main:       entry.CategoryMain,
		Sub:        entry.CategorySub,
		Tags:       append([]string{}, entry.Tags...),
		Confidence: ConfidenceTable,
	}
	if res.Main != "" {
		return res
	}

	if main, ok := m.inferMain(item, merchant); ok {
		res.Main = main
		res.Confidence = ConfidenceInferred
		return res
	}
	res.Confidence = ConfidenceUnknown
	return res
}

// inferMain scans item then merchant text against the keyword fallback table.
func (m *Mapper) inferMain(item, merchant string) (string, bool) {
	for _, text := range []string{item, merchant} {
		if text == "" {
			continue
		}
		for _, keyword := range m.fallbackKeys {
			if strings.Contains(text, keyword) {
				return m.system.KeywordFallback[keyword], true
			}
		}
	}
	return "", false
}
