package table

import "sort"

// Missing is the sentinel for an absent or uncoercible cell.
const Missing = ""

// Row maps column name to canonical cell text.
type Row map[string]string

// Get returns the cell for col, or Missing.
func (r Row) Get(col string) string {
	return r[col]
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is a named, column-ordered set of rows.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns.
func New(name string, columns ...string) *Table {
	t := &Table{Name: name}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// Len returns the number of rows; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether col is a column of t.
func (t *Table) Has(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// MissingColumns returns the subset of cols that t does not carry, in order.
func (t *Table) MissingColumns(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// AddColumn appends col unless it is already present.
func (t *Table) AddColumn(col string) {
	if !t.Has(col) {
		t.Columns = append(t.Columns, col)
	}
}

// Append adds r. Columns listed in order are registered first; any other
// unseen keys of r are registered in lexical order so the column list never
// depends on map iteration.
func (t *Table) Append(r Row, order ...string) {
	for _, c := range order {
		t.AddColumn(c)
	}
	var extra []string
	for c := range r {
		if !t.Has(c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		t.AddColumn(c)
	}
	t.Rows = append(t.Rows, r)
}

// Clone deep copies t so callers can modify the copy without touching t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// WithShape returns an empty table with the same name and columns as t.
func (t *Table) WithShape(name string) *Table {
	out := &Table{Name: name}
	if t != nil {
		out.Columns = append([]string(nil), t.Columns...)
	}
	return out
}

// Values returns the column's cells in row order.
func (t *Table) Values(col string) []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r[col])
	}
	return out
}

// FirstPresent returns the first candidate that is a column of t, in
// candidate order.
func (t *Table) FirstPresent(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if t.Has(c) {
			return c, true
		}
	}
	return "", false
}
