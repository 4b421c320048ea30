package eligibility

import (
	"strings"

	"github.com/polisai/bordereaux/pkg/table"
)

// CensusPrefix is the summary-level prefix some datasets put in front of an
// 11-digit tract GEOID.
const CensusPrefix = "1400000US"

// Candidate column names in the eligibility dataset, first match wins.
var (
	TractColumns = []string{
		"Census tract 2010 ID", "GEOID10", "GEOID", "tract", "tract_fips", "tract_cef_fips",
	}
	FlagColumns = []string{
		"Identified as disadvantaged",
		"Identified as disadvantaged without considering neighbors",
		"is_disadvantaged", "disadvantaged", "d_index", "DI",
	}
)

var truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "disadvantaged": true}

// NormalizeTract strips CensusPrefix and non-digits from s. Anything that is
// not then exactly 11 digits yields "".
func NormalizeTract(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CensusPrefix)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 11 {
		return table.Missing
	}
	return b.String()
}

// Disadvantaged normalizes a dataset flag. Unknown or absent values are false.
func Disadvantaged(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

// Lookup maps an 11-digit tract to its disadvantaged flag.
type Lookup struct {
	flags     map[string]bool
	conflicts int
	invalid   int
}

// Get returns the flag for tract and whether the tract is known.
func (l *Lookup) Get(tract string) (bool, bool) {
	v, ok := l.flags[tract]
	return v, ok
}

// Len is the number of distinct tracts.
func (l *Lookup) Len() int { return len(l.flags) }

// Conflicts counts later rows that disagreed with an already recorded tract.
func (l *Lookup) Conflicts() int { return l.conflicts }

// Invalid counts dataset rows whose tract id could not be normalized.
func (l *Lookup) Invalid() int { return l.invalid }

// BuildLookup resolves the tract and flag columns of t and deduplicates by
// tract, keeping the first occurrence. It returns the candidate lists that
// matched nothing when a column cannot be found.
func BuildLookup(t *table.Table) (*Lookup, []string) {
	cols := table.ResolveAliases(t, map[string][]string{"tract": TractColumns, "flag": FlagColumns})
	var missing []string
	if _, ok := cols["tract"]; !ok {
		missing = append(missing, "tract column (tried "+strings.Join(TractColumns, ", ")+")")
	}
	if _, ok := cols["flag"]; !ok {
		missing = append(missing, "disadvantaged column (tried "+strings.Join(FlagColumns, ", ")+")")
	}
	if len(missing) > 0 {
		return nil, missing
	}

	l := &Lookup{flags: make(map[string]bool, t.Len())}
	for _, r := range t.Rows {
		tract := NormalizeTract(r[cols["tract"]])
		if tract == table.Missing {
			l.invalid++
			continue
		}
		flag := Disadvantaged(r[cols["flag"]])
		if prev, seen := l.flags[tract]; seen {
			if prev != flag {
				l.conflicts++
			}
			continue
		}
		l.flags[tract] = flag
	}
	return l, nil
}
