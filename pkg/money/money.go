// Package money parses the monetary and percentage text found in carrier
// bordereaux.
//
// Two policies exist side by side. ParseStrict reports failure so callers can
// record a missing value; ParseLenient maps anything unusable to zero and is
// reserved for ledger posting, where zero is the agreed fallback.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the scale used when rendering posted amounts.
const Places = 2

var cleaner = strings.NewReplacer("$", "", ",", "", "%", "", " ", "", "\t", "", "\u00a0", "")

// Clean removes currency symbols, thousands separators, percent signs and
// whitespace from s.
func Clean(s string) string {
	return cleaner.Replace(strings.TrimSpace(s))
}

// ParseStrict parses s after cleaning. ok is false for empty or non-numeric
// text.
func ParseStrict(s string) (d decimal.Decimal, ok bool) {
	c := Clean(s)
	if c == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(c)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseLenient parses s after cleaning and returns zero when it cannot.
func ParseLenient(s string) decimal.Decimal {
	d, ok := ParseStrict(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// Normalize rewrites s in canonical decimal form, or returns "" when s is not
// a number.
func Normalize(s string) string {
	d, ok := ParseStrict(s)
	if !ok {
		return ""
	}
	return d.String()
}

// Format renders d with two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Sum adds vals, treating unparsable or empty entries as zero.
func Sum(vals ...string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(ParseLenient(v))
	}
	return total
}
