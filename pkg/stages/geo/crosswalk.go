package geo

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polisai/bordereaux/pkg/table"
)

// Required crosswalk columns, matched case-insensitively.
const (
	colZIP   = "ZIP"
	colState = "STATE"
	colCount = "COUNTY"
	colTract = "TRACT"
	colRatio = "RES_RATIO"
)

// Tract is one crosswalk entry: a postal code's share of a census tract.
type Tract struct {
	ZIP       string
	StateFIPS string
	County    string
	TractFIPS string
	Ratio     decimal.Decimal
}

// Crosswalk is the postal code universe plus the selected tract per code.
type Crosswalk struct {
	best map[string]Tract
}

// Lookup returns the selected tract for zip.
func (c *Crosswalk) Lookup(zip string) (Tract, bool) {
	t, ok := c.best[zip]
	return t, ok
}

// Contains reports whether zip is part of the crosswalk universe.
func (c *Crosswalk) Contains(zip string) bool {
	_, ok := c.best[zip]
	return ok
}

// Len is the number of distinct postal codes.
func (c *Crosswalk) Len() int { return len(c.best) }

// ParseCrosswalk reads crosswalk entries from t. It returns the names of any
// required columns t lacks.
func ParseCrosswalk(t *table.Table) ([]Tract, []string) {
	cols := map[string]string{}
	for _, want := range []string{colZIP, colState, colCount, colTract, colRatio} {
		for _, c := range t.Columns {
			if strings.EqualFold(strings.TrimSpace(c), want) {
				cols[want] = c
				break
			}
		}
	}
	var missing []string
	for _, want := range []string{colZIP, colState, colCount, colTract, colRatio} {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, missing
	}

	entries := make([]Tract, 0, t.Len())
	for _, r := range t.Rows {
		zip := digits(r[cols[colZIP]])
		if zip == "" {
			continue
		}
		if len(zip) > 5 {
			// ZIP+4 forms keep the leading five digits.
			zip = zip[:5]
		}
		zip = leftPad(zip, 5)
		state := padDigits(r[cols[colState]], 2)
		county := padDigits(r[cols[colCount]], 3)
		tract := digits(r[cols[colTract]])
		switch {
		case len(tract) == 11:
			// Full GEOID supplied; it is authoritative for state and county.
			state, county = tract[:2], tract[2:5]
		default:
			tract = state + county + leftPad(tract, 6)
		}
		ratio, err := decimal.NewFromString(strings.TrimSpace(r[cols[colRatio]]))
		if err != nil {
			ratio = decimal.Zero
		}
		entries = append(entries, Tract{ZIP: zip, StateFIPS: state, County: county, TractFIPS: tract, Ratio: ratio})
	}
	return entries, nil
}

// BestMatch selects one tract per postal code: entries are stable-sorted by
// postal code ascending then ratio descending, and the first entry for each
// code wins. Among equal maximum ratios the entry that appeared first in the
// crosswalk is kept.
func BestMatch(entries []Tract) *Crosswalk {
	sorted := append([]Tract(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ZIP != sorted[j].ZIP {
			return sorted[i].ZIP < sorted[j].ZIP
		}
		return sorted[i].Ratio.GreaterThan(sorted[j].Ratio)
	})
	best := make(map[string]Tract, len(sorted))
	for _, e := range sorted {
		if _, ok := best[e.ZIP]; !ok {
			best[e.ZIP] = e
		}
	}
	return &Crosswalk{best: best}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func padDigits(s string, width int) string {
	d := digits(strings.TrimSpace(s))
	if d == "" {
		return ""
	}
	return leftPad(d, width)
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
