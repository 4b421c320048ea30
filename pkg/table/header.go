package table

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldHeader reduces a human-entered header to a comparison key: Unicode case
// folded, surrounding whitespace trimmed and inner whitespace runs collapsed to
// one space. "  Gross   PREMIUM " and "gross premium" fold to the same key.
func FoldHeader(h string) string {
	return cases.Fold().String(strings.Join(strings.Fields(h), " "))
}

// ResolveAliases maps each canonical name to the first column of t whose
// folded header equals the folded form of one of its aliases, trying aliases
// in order. Canonical names with no match are absent from the result.
func ResolveAliases(t *Table, aliases map[string][]string) map[string]string {
	folded := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		key := FoldHeader(c)
		if _, dup := folded[key]; !dup {
			folded[key] = c
		}
	}
	out := make(map[string]string, len(aliases))
	for canonical, candidates := range aliases {
		for _, a := range candidates {
			if col, ok := folded[FoldHeader(a)]; ok {
				out[canonical] = col
				break
			}
		}
	}
	return out
}
