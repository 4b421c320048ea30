package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the semantic type of a declared column.
type Kind int

const (
	String Kind = iota
	Int
	Decimal
	Money
	Date
	Timestamp
	Bool
)

// DateLayout and TimestampLayout are the canonical text forms for temporal cells.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Decimal:
		return "decimal"
	case Money:
		return "money"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Coerce converts raw into the canonical text for k. Anything that cannot be
// interpreted as k becomes Missing; it is never replaced by a zero value.
func Coerce(k Kind, raw string) string {
	if k == String {
		return raw
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing
	}
	switch k {
	case Int:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
		// Integers that went through a float column arrive as "2.0".
		d, err := decimal.NewFromString(s)
		if err != nil || !d.Equal(d.Truncate(0)) {
			return Missing
		}
		return d.Truncate(0).String()
	case Decimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Missing
		}
		return d.String()
	case Money:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Missing
		}
		return d.StringFixed(2)
	case Date:
		t, ok := ParseDate(s)
		if !ok {
			return Missing
		}
		return t.Format(DateLayout)
	case Timestamp:
		t, ok := ParseTimestamp(s)
		if !ok {
			return Missing
		}
		return t.UTC().Format(TimestampLayout)
	case Bool:
		b, ok := ParseBool(s)
		if !ok {
			return Missing
		}
		return FormatBool(b)
	}
	return Missing
}

// ParseBool accepts the usual spellings of a boolean, case-insensitively.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y":
		return true, true
	case "false", "f", "0", "no", "n":
		return false, true
	}
	return false, false
}

// FormatBool renders b in canonical form.
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
