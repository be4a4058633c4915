// Package table holds the raw tabular form every spreadsheet input is read
// into, and the header normalization that turns it into a known column subset.
//
// Raw header strings never leave this package and internal/parsers: once a
// table is normalized, callers address columns by the canonical names listed
// in internal/models.
//
// Example usage:
//
//	raw := table.New("settlement", []string{" documento ", "Fecha"})
//	raw.Append([]string{"1001", "2024-03-05"})
//	projected, missing := raw.Canonicalize().Project([]string{"DOCUMENTO", "FECHA", "IVA"})
//	// projected.Columns == [DOCUMENTO FECHA], missing == [IVA]
package table

import (
	"strings"
)

// Table is an ordered collection of string rows under a header.
// Every row has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	// Typed is set for tables read from a workbook, whose numeric cells are
	// already in canonical dot-decimal form
	Typed bool
}

// New creates an empty table with the given header
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// FromRows builds a table from a header row followed by data rows, as read
// from a sheet. Rows shorter than the header are padded and longer rows are
// cut; rows whose cells are all blank are dropped.
func FromRows(name string, rows [][]string) *Table {
	if len(rows) == 0 {
		return New(name, nil)
	}

	header := trimTrailingBlank(rows[0])
	t := New(name, header)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Append(row)
	}
	return t
}

// Canonical trims and upper-cases a header for comparison
func Canonical(header string) string {
	return strings.ToUpper(strings.TrimSpace(header))
}

// Append adds a row, padding or cutting it to the header width
func (t *Table) Append(row []string) {
	cells := make([]string, len(t.Columns))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// Len returns the number of data rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Width returns the number of columns
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Index returns the position of the first column whose canonical name equals
// the canonical form of column, or -1.
func (t *Table) Index(column string) int {
	if t == nil {
		return -1
	}
	want := Canonical(column)
	for i, c := range t.Columns {
		if Canonical(c) == want {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries column
func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Value returns the cell at row for column, or "" when the column is absent
func (t *Table) Value(row int, column string) string {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// Column returns a copy of every value in column
func (t *Table) Column(column string) []string {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// Canonicalize returns a copy with every header in canonical form
func (t *Table) Canonicalize() *Table {
	out := t.Clone()
	for i, c := range out.Columns {
		out.Columns[i] = Canonical(c)
	}
	return out
}

// Project keeps the expected columns that are present, in expected order,
// and reports which expected columns were absent. When a header appears more
// than once the first occurrence is used. Absence is not an error.
func (t *Table) Project(expected []string) (*Table, []string) {
	var (
		kept    []string
		sources []int
		missing []string
	)
	for _, col := range expected {
		idx := t.Index(col)
		if idx < 0 {
			missing = append(missing, col)
			continue
		}
		kept = append(kept, Canonical(col))
		sources = append(sources, idx)
	}

	out := New(t.Name, kept)
	out.Typed = t.Typed
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(sources))
		for i, src := range sources {
			cells[i] = row[src]
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, missing
}

// Truncate returns a copy holding only the first n columns
func (t *Table) Truncate(n int) *Table {
	if n > len(t.Columns) {
		n = len(t.Columns)
	}
	if n < 0 {
		n = 0
	}

	out := New(t.Name, t.Columns[:n])
	out.Typed = t.Typed
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, n)
		copy(cells, row[:n])
		out.Rows[i] = cells
	}
	return out
}

// Align returns a copy laid out under columns. Each cell is taken from the
// column of t with the same canonical name and left empty when t has none.
func (t *Table) Align(columns []string) *Table {
	sources := make([]int, len(columns))
	for i, col := range columns {
		sources[i] = t.Index(col)
	}

	out := New(t.Name, columns)
	out.Typed = t.Typed
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(columns))
		for j, src := range sources {
			if src >= 0 {
				cells[j] = row[src]
			}
		}
		out.Rows[i] = cells
	}
	return out
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	out := New(t.Name, t.Columns)
	out.Typed = t.Typed
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		copy(cells, row)
		out.Rows[i] = cells
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(header []string) []string {
	end := len(header)
	for end > 0 && strings.TrimSpace(header[end-1]) == "" {
		end--
	}
	return header[:end]
}
