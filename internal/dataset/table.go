// Package dataset holds the string tables passed between pipeline stages and
// readers for the corpus metadata files that feed them.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Table is a header plus string rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable creates an empty table with the given columns.
func NewTable(header ...string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table has column name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the index of column name.
func (t *Table) Column(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return i, nil
}

// Require checks that all names are present.
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if _, err := t.Column(name); err != nil {
			return err
		}
	}
	return nil
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(row []string) {
	out := make([]string, len(t.Header))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// Value returns the cell at row for column name, or "" if the column is absent.
func (t *Table) Value(row int, name string) string {
	i, ok := t.index[name]
	if !ok {
		return ""
	}
	return t.Rows[row][i]
}

// Float parses the cell at row for column name. Missing values are NaN.
func (t *Table) Float(row int, name string) float64 {
	return ParseFloat(t.Value(row, name))
}

// Strings returns a copy of column name.
func (t *Table) Strings(name string) ([]string, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[col]
	}
	return out, nil
}

// Floats parses column name.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = ParseFloat(row[col])
	}
	return out, nil
}

// Unique returns the distinct values of column name in first-appearance order.
func (t *Table) Unique(name string) ([]string, error) {
	values, err := t.Strings(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Filter returns a new table with the rows for which keep returns true. The
// row index refers to the receiver.
func (t *Table) Filter(keep func(i int, row []string) bool) *Table {
	out := NewTable(t.Header...)
	for i, row := range t.Rows {
		if keep(i, row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Select returns a table holding only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	out := NewTable(names...)
	for _, row := range t.Rows {
		r := make([]string, len(cols))
		for i, c := range cols {
			r[i] = row[c]
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// Drop returns a table without the named columns. Absent names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	var keep []string
	for _, h := range t.Header {
		if _, ok := drop[h]; !ok {
			keep = append(keep, h)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// AddColumn appends a column. values must have one entry per row.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	t.reindex()
	return nil
}

// Concat stacks tables by column name using the first table's header.
// Columns missing from a later table are left empty.
func Concat(tables ...*Table) *Table {
	if len(tables) == 0 {
		return NewTable()
	}
	out := NewTable(tables[0].Header...)
	for _, tbl := range tables {
		for i := range tbl.Rows {
			row := make([]string, len(out.Header))
			for c, name := range out.Header {
				row[c] = tbl.Value(i, name)
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// ReadCSV reads a comma separated file with a header row.
func ReadCSV(path string) (*Table, error) {
	return readFile(path, ',')
}

// ReadTSV reads a tab separated file with a header row.
func ReadTSV(path string) (*Table, error) {
	return readFile(path, '\t')
}

func readFile(path string, comma rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	t, err := Read(f, comma)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Read parses a delimited stream whose first record is the header. An empty
// stream yields an empty table.
func Read(r io.Reader, comma rune) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return NewTable(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := NewTable(header...)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Append(record)
	}
	return t, nil
}

// WriteCSV writes the table to path, creating parent directories.
func (t *Table) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// IsMissing reports whether a cell holds no value: empty, NaN or NA.
func IsMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "na", "n/a", "none":
		return true
	}
	return false
}

// DropMissing returns the rows without missing cells.
func (t *Table) DropMissing() *Table {
	return t.Filter(func(_ int, row []string) bool {
		for _, cell := range row {
			if IsMissing(cell) {
				return false
			}
		}
		return true
	})
}

// ParseFloat parses a numeric cell. Missing cells are NaN.
func ParseFloat(s string) float64 {
	if IsMissing(s) {
		return math.NaN()
	}
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FormatFloat renders v in its shortest form, NaN as "NaN".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool renders booleans the way the downstream tables expect them.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
