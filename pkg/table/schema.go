package table

// Field declares one column of a schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered column contract of a stage output.
type Schema struct {
	Name   string
	Fields []Field
}

// Columns returns the declared column names in order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Kind returns the declared kind of col.
func (s Schema) Kind(col string) (Kind, bool) {
	for _, f := range s.Fields {
		if f.Name == col {
			return f.Kind, true
		}
	}
	return String, false
}

// Extend returns a new schema named name with fields appended after s's.
// Fields already declared by s keep their original position and kind.
func (s Schema) Extend(name string, fields ...Field) Schema {
	out := Schema{Name: name, Fields: append([]Field(nil), s.Fields...)}
	for _, f := range fields {
		if _, ok := out.Kind(f.Name); !ok {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// Enforce returns a copy of t shaped to s: declared columns first in declared
// order, absent ones filled with Missing, undeclared columns kept afterwards in
// their original order, and every declared cell coerced to its kind. t is not
// modified.
func Enforce(t *Table, s Schema) *Table {
	name := s.Name
	if t != nil && t.Name != "" {
		name = t.Name
	}
	out := &Table{Name: name, Columns: s.Columns()}
	declared := make(map[string]Kind, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Name] = f.Kind
	}
	if t == nil {
		return out
	}
	for _, c := range t.Columns {
		if _, ok := declared[c]; !ok {
			out.Columns = append(out.Columns, c)
		}
	}
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(out.Columns))
		for _, c := range out.Columns {
			if k, ok := declared[c]; ok {
				nr[c] = Coerce(k, r[c])
				continue
			}
			nr[c] = r[c]
		}
		out.Rows[i] = nr
	}
	return out
}
