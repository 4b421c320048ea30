package table

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testSchema = Schema{
	Name: "test",
	Fields: []Field{
		{Name: "id", Kind: String},
		{Name: "amount", Kind: Decimal},
		{Name: "count", Kind: Int},
		{Name: "when", Kind: Date},
		{Name: "ok", Kind: Bool},
	},
}

func TestEnforce_OrdersDeclaredColumnsAndKeepsPassthrough(t *testing.T) {
	in := New("in", "extra", "amount", "id")
	in.Append(Row{"extra": "x", "amount": "12.50", "id": "A"})

	out := Enforce(in, testSchema)

	assert.Equal(t, []string{"id", "amount", "count", "when", "ok", "extra"}, out.Columns)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "A", out.Rows[0]["id"])
	assert.Equal(t, "12.5", out.Rows[0]["amount"])
	assert.Equal(t, Missing, out.Rows[0]["count"])
	assert.Equal(t, "x", out.Rows[0]["extra"])
}

func TestEnforce_CoercionFailuresBecomeMissing(t *testing.T) {
	in := New("in", "id", "amount", "count", "when", "ok")
	in.Append(Row{"id": "A", "amount": "abc", "count": "2.5", "when": "not a date", "ok": "maybe"})

	out := Enforce(in, testSchema)

	row := out.Rows[0]
	assert.Equal(t, Missing, row["amount"], "unparsable decimal must not become zero")
	assert.Equal(t, Missing, row["count"])
	assert.Equal(t, Missing, row["when"])
	assert.Equal(t, Missing, row["ok"])
}

func TestEnforce_DoesNotMutateInput(t *testing.T) {
	in := New("in", "id", "count")
	in.Append(Row{"id": "A", "count": "2.0"})

	out := Enforce(in, testSchema)

	assert.Equal(t, "2", out.Rows[0]["count"])
	assert.Equal(t, "2.0", in.Rows[0]["count"])
	assert.Equal(t, []string{"id", "count"}, in.Columns)
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		kind Kind
		in   string
		want string
	}{
		{Money, "800", "800.00"},
		{Money, "1000.5", "1000.50"},
		{Bool, "Yes", "true"},
		{Bool, "0", "false"},
		{Int, " 42 ", "42"},
		{Timestamp, "2024-03-01 10:00:00", "2024-03-01T10:00:00Z"},
		{Date, "2024-03-01T10:00:00Z", "2024-03-01"},
		{String, "  keep  ", "  keep  "},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Coerce(tc.kind, tc.in), "%s(%q)", tc.kind, tc.in)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-01-15", "01/15/2024", "1/15/2024", "Jan 15, 2024", "15-Jan-2024", "45306"} {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	_, ok := ParseDate("sometime next year")
	assert.False(t, ok)
}

func TestReadCSV_StripsBOMAndPadsShortRows(t *testing.T) {
	src := "\xEF\xBB\xBFName,Amount,Name\nAcme,10,dup\nShort\n"

	tbl, err := ReadCSV(strings.NewReader(src), "carrier.csv", ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Amount", "Name.1"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "dup", tbl.Rows[0]["Name.1"])
	assert.Equal(t, Missing, tbl.Rows[1]["Amount"])
}

func TestReadCSV_DecodesLegacyEncoding(t *testing.T) {
	src := []byte("Principal\nCaf\xe9 Builders\n")

	tbl, err := ReadCSV(bytes.NewReader(src), "legacy.csv", ReadOptions{Encoding: "windows-1252"})
	require.NoError(t, err)

	assert.Equal(t, "Café Builders", tbl.Rows[0]["Principal"])
}

func TestReadCSV_EmptySource(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv", ReadOptions{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	in := New("out", "a", "b")
	in.Append(Row{"a": "1", "b": "has,comma"})
	in.Append(Row{"a": "", "b": "quote\"d"})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	back, err := ReadCSV(&buf, "out", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, in.Columns, back.Columns)
	assert.Equal(t, in.Rows, back.Rows)
}

func TestResolveAliases(t *testing.T) {
	tbl := New("raw", "  GROSS   premium ", "Net Premium", "Commission")
	aliases := map[string][]string{
		"gross_premium":     {"Gross Premium"},
		"net_premium":       {"Net Written Premium", "Net Premium"},
		"commission_amount": {"Commission"},
		"penal_amount":      {"Penal Amount"},
	}

	got := ResolveAliases(tbl, aliases)

	assert.Equal(t, "  GROSS   premium ", got["gross_premium"])
	assert.Equal(t, "Net Premium", got["net_premium"])
	assert.Equal(t, "Commission", got["commission_amount"])
	_, ok := got["penal_amount"]
	assert.False(t, ok)
}

// Enforce never drops a declared or passthrough column and never changes the row count.
func TestEnforceSchemaClosureProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cols := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{1,6}`), rapid.ID[string]).Draw(t, "cols")
		n := rapid.IntRange(0, 5).Draw(t, "rows")
		in := New("in", cols...)
		for i := 0; i < n; i++ {
			r := Row{}
			for _, c := range cols {
				r[c] = rapid.String().Draw(t, "cell")
			}
			in.Append(r)
		}

		out := Enforce(in, testSchema)

		if out.Len() != in.Len() {
			t.Fatalf("row count changed: %d -> %d", in.Len(), out.Len())
		}
		for _, c := range testSchema.Columns() {
			if !out.Has(c) {
				t.Fatalf("declared column %q missing", c)
			}
		}
		for _, c := range cols {
			if !out.Has(c) {
				t.Fatalf("passthrough column %q dropped", c)
			}
		}
		for i, c := range testSchema.Columns() {
			if out.Columns[i] != c {
				t.Fatalf("declared column %q not at position %d", c, i)
			}
		}
	})
}
