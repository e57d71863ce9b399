// Package timeparse parses source date strings into precision-preserving
// transaction times. Adapter profiles declare date formats using strptime
// directives (the form profile generators emit); this package converts them
// to Go layouts and falls back to a small permissive format list when the
// declared format does not match.
package timeparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"githubledger/ledger-adapt/internal/models"
)

// Parse confidences: an exact profile-format match is fully trusted, a
// permissive-fallback match is not.
const (
	ConfidenceExact    = 1.0
	ConfidenceFallback = 0.7
)

// strptime directive to Go layout fragment. Numeric directives map to
// non-fixed-width fragments so both padded and unpadded source values parse.
var strptimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "1",
	'd': "2",
	'H': "15",
	'M': "4",
	'S': "5",
	'b': "Jan",
	'B': "January",
}

// directives that imply the source carries a time-of-day
var timeDirectives = "HMS"

// fallbackDateLayouts are tried, in order, when the profile's declared format
// does not match. Date-only layouts first.
var fallbackDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006年1月2日",
	"Jan 2, 2006",
	"2 January 2006",
}

// fallbackDateTimeLayouts carry a time-of-day component.
var fallbackDateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	time.RFC3339,
	"2006年1月2日 15:04",
}

var spaceRun = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses whitespace in a date string.
func CleanDateString(dateStr string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// StrptimeToLayout converts a strptime-style format ("%Y年%m月%d日",
// "%Y-%m-%d %H:%M:%S") into a Go time layout. The second return reports
// whether the format carries a time-of-day component.
func StrptimeToLayout(format string) (string, bool, error) {
	var b strings.Builder
	hasTime := false
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			b.WriteByte(format[i])
			continue
		}
		i++
		if i >= len(format) {
			return "", false, fmt.Errorf("trailing %% in date format %q", format)
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}
		fragment, ok := strptimeDirectives[format[i]]
		if !ok {
			return "", false, fmt.Errorf("unsupported directive %%%c in date format %q", format[i], format)
		}
		if strings.IndexByte(timeDirectives, format[i]) >= 0 {
			hasTime = true
		}
		b.WriteString(fragment)
	}
	return b.String(), hasTime, nil
}

// Parse parses a source date string. The profile format (strptime directives,
// may be empty) is tried first at full confidence; the permissive fallback
// lists are tried next at reduced confidence. The returned TxTime carries
// date-only precision unless the matched layout includes a time component.
func Parse(dateStr, profileFormat string) (models.TxTime, float64, error) {
	cleaned := CleanDateString(dateStr)
	if cleaned == "" {
		return models.TxTime{}, 0, fmt.Errorf("empty date")
	}

	if profileFormat != "" {
		layout, hasTime, err := StrptimeToLayout(profileFormat)
		if err != nil {
			return models.TxTime{}, 0, err
		}
		if t, err := time.Parse(layout, cleaned); err == nil {
			return toTxTime(t, hasTime), ConfidenceExact, nil
		}
	}

	for _, layout := range fallbackDateTimeLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return toTxTime(t, true), ConfidenceFallback, nil
		}
	}
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return toTxTime(t, false), ConfidenceFallback, nil
		}
	}

	return models.TxTime{}, 0, fmt.Errorf("unable to parse date: %s", dateStr)
}

func toTxTime(t time.Time, hasTime bool) models.TxTime {
	if hasTime {
		return models.NewDateTime(t.UTC())
	}
	return models.NewDateOnly(t)
}
