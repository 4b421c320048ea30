package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmpty is returned when a CSV source has no header row.
var ErrEmpty = errors.New("csv has no header row")

// ReadOptions controls how a delimited source is decoded.
type ReadOptions struct {
	// Encoding is a WHATWG label such as "windows-1252" or "utf-16le".
	// Empty means UTF-8 with an optional byte order mark.
	Encoding string
	// Comma overrides the field delimiter; zero means ','.
	Comma rune
}

// Decoder resolves an encoding label to a decoder. UTF-8 input has any leading
// BOM removed.
func Decoder(label string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc.NewDecoder(), nil
}

// ReadCSV parses a header-driven delimited source into a table named name.
// Short rows are padded with Missing, extra cells beyond the header are
// dropped, and repeated header names are suffixed ".1", ".2", ...
func ReadCSV(r io.Reader, name string, opts ReadOptions) (*Table, error) {
	dec, err := Decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(transform.NewReader(r, dec))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := uniqueHeader(header)

	t := &Table{Name: name, Columns: columns}
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := make(Row, len(columns))
		for i, c := range columns {
			if i < len(rec) {
				row[c] = rec[i]
			} else {
				row[c] = Missing
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func uniqueHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		n := seen[h]
		seen[h] = n + 1
		if n > 0 {
			h = h + "." + strconv.Itoa(n)
		}
		out[i] = h
	}
	return out
}

// WriteCSV writes t as UTF-8 CSV with a header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = r[c]
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile reads the CSV at path; the table is named after the file's base name.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // paths come from operator configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, filepath.Base(path), opts)
}

// WriteFile writes t to path, creating parent directories as needed.
func WriteFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // paths come from operator configuration
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
