package models

import (
	"fmt"
	"strings"
	"time"
)

// TimePrecision indicates how much temporal information the source actually
// carried for a transaction.
type TimePrecision int

const (
	// PrecisionDate means the source provided a calendar date only.
	PrecisionDate TimePrecision = iota
	// PrecisionDateTime means the source provided a full timestamp.
	PrecisionDateTime
)

// TxTime is a transaction time that preserves the precision present in the
// source. A date-only value is never promoted to a timestamp with a synthetic
// time-of-day; comparisons against a date-only value are performed at date
// granularity.
type TxTime struct {
	t         time.Time
	precision TimePrecision
}

// NewDate returns a date-only TxTime.
func NewDate(year int, month time.Month, day int) TxTime {
	return TxTime{
		t:         time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		precision: PrecisionDate,
	}
}

// NewDateOnly returns a date-only TxTime taken from the calendar date of t.
func NewDateOnly(t time.Time) TxTime {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// NewDateTime returns a full-precision TxTime.
func NewDateTime(t time.Time) TxTime {
	return TxTime{t: t, precision: PrecisionDateTime}
}

// Time returns the underlying instant. For date-only values the clock part
// is an internal representation detail and must not be surfaced.
func (tt TxTime) Time() time.Time {
	return tt.t
}

// Precision returns the precision the source carried.
func (tt TxTime) Precision() TimePrecision {
	return tt.precision
}

// IsDateOnly reports whether the source carried a calendar date only.
func (tt TxTime) IsDateOnly() bool {
	return tt.precision == PrecisionDate
}

// IsZero reports whether the value is unset.
func (tt TxTime) IsZero() bool {
	return tt.t.IsZero()
}

// dateOf truncates an instant to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Before compares two transaction times. When either side is date-only the
// comparison projects both to date granularity.
func (tt TxTime) Before(other TxTime) bool {
	if tt.IsDateOnly() || other.IsDateOnly() {
		return dateOf(tt.t).Before(dateOf(other.t))
	}
	return tt.t.Before(other.t)
}

// Equal compares two transaction times. In strict mode (dateOnlyMatch false)
// values of different precision are equal only when both project to the same
// calendar date and the finer value carries no time-of-day; in permissive
// mode equality is decided entirely at date granularity.
func (tt TxTime) Equal(other TxTime, dateOnlyMatch bool) bool {
	if dateOnlyMatch {
		return dateOf(tt.t).Equal(dateOf(other.t))
	}
	if tt.precision != other.precision {
		return dateOf(tt.t).Equal(dateOf(other.t)) && tt.t.Equal(dateOf(tt.t)) && other.t.Equal(dateOf(other.t))
	}
	return tt.t.Equal(other.t)
}

// SecondsApart returns the absolute distance between two transaction times in
// seconds. In permissive mode (dateOnlyMatch), or when both sides are
// date-only, distance is measured between calendar dates. A strict mixed-
// precision comparison anchors the date-only side at the start of its day, so
// a date-only value sits next to a midnight timestamp but far from an evening
// one, consistent with Equal.
func (tt TxTime) SecondsApart(other TxTime, dateOnlyMatch bool) float64 {
	a, b := tt.t, other.t
	if dateOnlyMatch || (tt.IsDateOnly() && other.IsDateOnly()) {
		a, b = dateOf(a), dateOf(b)
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d.Seconds()
}

// DateKey returns the calendar date as YYYY-MM-DD, used for date-granularity
// dedup grouping.
func (tt TxTime) DateKey() string {
	return tt.t.Format("2006-01-02")
}

// String renders the value at its source precision.
func (tt TxTime) String() string {
	if tt.IsZero() {
		return ""
	}
	if tt.IsDateOnly() {
		return tt.t.Format("2006-01-02")
	}
	return tt.t.Format(time.RFC3339)
}

// MarshalJSON encodes a date-only value as "2006-01-02" and a full timestamp
// as RFC 3339, so the serialized form preserves source precision.
func (tt TxTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", tt.String())), nil
}

// UnmarshalJSON accepts either serialized form.
func (tt *TxTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*tt = TxTime{}
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		*tt = NewDateOnly(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid transaction time %q: %w", s, err)
	}
	*tt = NewDateTime(t)
	return nil
}
