// Package extraction applies an adapter profile's ordered rule list to free
// text, pulling out merchants and discard-metadata while keeping the
// unmatched remainder as residual notes.
package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/profile"
)

// Confidence of each extraction outcome. A rule hit is trusted but not fully;
// no hit at all leaves the merchant unknown and the row below the default
// review threshold.
const (
	ConfidenceRuleMatch = 0.85
	ConfidenceNoMatch   = 0.6
)

// Result is the outcome of applying the rule list to one text span.
type Result struct {
	// Merchant is empty when no extract_as_merchant rule matched. It is
	// never defaulted.
	Merchant   string
	Confidence float64
	// Residual is the text with extracted and discarded spans removed,
	// retained verbatim otherwise.
	Residual string
	// Discarded holds spans removed by extract_as_metadata rules, for audit.
	Discarded []string
}

type compiledRule struct {
	re       *regexp.Regexp
	keywords []string
	action   profile.RuleAction
	replace  string
}

// Engine evaluates ordered extraction rules. Rules are compiled once at
// construction; a profile with an uncompilable pattern never gets this far
// because the validator rejects it, but compilation errors are still
// reported rather than swallowed.
type Engine struct {
	rules  []compiledRule
	logger logging.Logger
}

// NewEngine compiles the profile's rule list.
func NewEngine(rules []profile.ExtractionRule, logger logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		cr := compiledRule{keywords: r.Keywords, action: r.Action, replace: r.Replace}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d: invalid pattern %q: %w", i, r.Pattern, err)
			}
			cr.re = re
		}
		compiled = append(compiled, cr)
	}
	return &Engine{rules: compiled, logger: logger}, nil
}

// match returns the first matching span of the rule in text, or ok=false.
func (r compiledRule) match(text string) (string, bool) {
	if r.re != nil {
		if loc := r.re.FindStringIndex(text); loc != nil {
			return text[loc[0]:loc[1]], true
		}
		return "", false
	}
	for _, kw := range r.keywords {
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// Apply evaluates the rules in order against text. The first rule that
// matches for a given action slot wins; later rules for the same slot are
// not re-matched. Unmatched text is retained verbatim in the residual.
func (e *Engine) Apply(text string) Result {
	res := Result{Residual: text, Confidence: ConfidenceNoMatch}
	filled := map[profile.RuleAction]bool{}

	for _, rule := range e.rules {
		if filled[rule.action] {
			continue
		}
		span, ok := rule.match(res.Residual)
		if !ok {
			continue
		}
		filled[rule.action] = true

		switch rule.action {
		case profile.ActionExtractMerchant:
			res.Merchant = merchantFromSpan(rule, span)
			res.Confidence = ConfidenceRuleMatch
			res.Residual = removeSpan(res.Residual, span)
		case profile.ActionExtractMetadata:
			res.Discarded = append(res.Discarded, span)
			res.Residual = removeSpan(res.Residual, span)
		case profile.ActionMap:
			res.Residual = strings.Replace(res.Residual, span, rule.replace, 1)
		}
	}

	res.Residual = tidyResidual(res.Residual)
	return res
}

// merchantFromSpan prefers the first capture group when the pattern declares
// one, so rules like `在(.+?)消费` extract the name rather than the frame.
func merchantFromSpan(rule compiledRule, span string) string {
	if rule.re != nil && rule.re.NumSubexp() > 0 {
		if sub := rule.re.FindStringSubmatch(span); len(sub) > 1 && sub[1] != "" {
			return strings.TrimSpace(sub[1])
		}
	}
	return strings.TrimSpace(span)
}

func removeSpan(text, span string) string {
	return strings.Replace(text, span, " ", 1)
}

// StripSpan removes the first occurrence of span from text and tidies the
// whitespace left behind, the same treatment rule matches get. Text without
// the span is returned unchanged.
func StripSpan(text, span string) string {
	if span == "" || !strings.Contains(text, span) {
		return text
	}
	return tidyResidual(removeSpan(text, span))
}

var residualSpaces = regexp.MustCompile(`\s+`)

// tidyResidual collapses whitespace left behind by span removal without
// otherwise rewriting the retained text.
func tidyResidual(text string) string {
	return strings.TrimSpace(residualSpaces.ReplaceAllString(text, " "))
}
