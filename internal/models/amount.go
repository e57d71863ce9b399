package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountCleaner strips formatting that commonly decorates amount cells:
// currency glyphs, thousands separators, surrounding whitespace.
var amountCleaner = strings.NewReplacer(
	",", "",
	"¥", "",
	"￥", "",
	"$", "",
	"€", "",
	" ", "",
	" ", "",
)

// Amount is an exact monetary value that remembers the digit count of its
// source text: "20" stays "20", "20.00" stays "20.00". The embedded decimal's
// exponent carries the scale; String and MarshalJSON render at that scale
// instead of trimming trailing fractional zeros the way decimal.String does.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps an exact decimal. The decimal's exponent becomes the
// rendered scale.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// Abs returns the absolute value at the same scale.
func (a Amount) Abs() Amount {
	return Amount{Decimal: a.Decimal.Abs()}
}

func (a Amount) String() string {
	if exp := a.Exponent(); exp < 0 {
		return a.StringFixed(-exp)
	}
	return a.Decimal.String()
}

// MarshalJSON renders the amount as a quoted numeral at source scale.
// Unmarshaling is inherited from the embedded decimal, which keeps the scale
// of the parsed string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// ParseAmount parses a source numeral string into an exact amount. The input
// digit count is preserved: "20" stays "20", "37.68" stays "37.68". Float
// round-trips are never involved.
func ParseAmount(raw string) (Amount, error) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount '%s': %w", raw, err)
	}
	return Amount{Decimal: d}, nil
}

// AmountKey returns a numeric-equality key for an amount: trailing fractional
// zeros are trimmed so 20, 20.0 and 20.00 group together during dedup while
// each record still stores its source digits.
func AmountKey(a Amount) string {
	s := a.Decimal.String()
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
