// Package table provides the in-memory record table the pipeline stages
// pass to one another.
//
// A Table is an ordered column list plus ordered rows. Each row maps column
// names to dynamically typed cells and carries two positions: Index, the
// stage-assigned row index, and Line, the record's line in the source file.
// Stages never mutate the table they receive; they Clone and return a new one.
package table

import (
	"fmt"
	"slices"
)

// Row is one record of a Table.
type Row struct {
	Index int // Row index; contiguous 0..n-1 after each reindexing stage
	Line  int // 1-based line of the record in the source file (0 if unknown)
	cells map[string]Value
}

// Get returns the cell for column, or Missing if the row has none.
func (r Row) Get(column string) Value {
	return r.cells[column]
}

// Has reports whether the row has a non-missing value for column.
func (r Row) Has(column string) bool {
	return !r.cells[column].IsMissing()
}

// Table is an ordered collection of rows sharing a column list.
type Table struct {
	columns []string
	rows    []Row
}

// New creates an empty table with the given columns.
// Duplicate column names are rejected.
func New(columns []string) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	return &Table{columns: slices.Clone(columns)}, nil
}

// MustNew is New for statically known column lists. It panics on duplicates.
func MustNew(columns ...string) *Table {
	t, err := New(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row built from values in column order.
// Missing trailing values are padded with Missing; extra values are an error.
// The row index is the next position in the table.
func (t *Table) Append(line int, values ...Value) error {
	if len(values) > len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	cells := make(map[string]Value, len(t.columns))
	for i, c := range t.columns {
		if i < len(values) {
			cells[c] = values[i]
		} else {
			cells[c] = Missing()
		}
	}
	t.rows = append(t.rows, Row{Index: len(t.rows), Line: line, cells: cells})
	return nil
}

// AppendMap adds a row from a column→value mapping. Unknown columns are an error.
func (t *Table) AppendMap(line int, values map[string]Value) error {
	for c := range values {
		if !t.HasColumn(c) {
			return fmt.Errorf("unknown column %q", c)
		}
	}
	row := make([]Value, len(t.columns))
	for i, c := range t.columns {
		row[i] = values[c]
	}
	return t.Append(line, row...)
}

// Columns returns a copy of the column list.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the rows in order. Rows share cell storage with the table
// and must be treated as read-only.
func (t *Table) Rows() []Row {
	return t.rows
}

// Row returns the row at position i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Column returns the values of a column in row order.
func (t *Table) Column(name string) []Value {
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.cells[name]
	}
	return out
}

// Indices returns the row indices in order.
func (t *Table) Indices() []int {
	out := make([]int, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Index
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: slices.Clone(t.columns),
		rows:    make([]Row, len(t.rows)),
	}
	for i, r := range t.rows {
		cells := make(map[string]Value, len(r.cells))
		for k, v := range r.cells {
			cells[k] = v
		}
		out.rows[i] = Row{Index: r.Index, Line: r.Line, cells: cells}
	}
	return out
}

// Filter keeps the rows for which keep returns true, in order, and reports
// how many were dropped. Row indices are left untouched; call Reindex to
// make them contiguous again.
func (t *Table) Filter(keep func(Row) bool) int {
	kept := t.rows[:0]
	for _, r := range t.rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	dropped := len(t.rows) - len(kept)
	clear(t.rows[len(kept):])
	t.rows = kept
	return dropped
}

// Reindex assigns the contiguous row index 0..n-1.
func (t *Table) Reindex() {
	for i := range t.rows {
		t.rows[i].Index = i
	}
}

// RenameColumns renames columns according to mapping. Columns not in the
// mapping are untouched. A rename onto a name that already exists is an error.
func (t *Table) RenameColumns(mapping map[string]string) error {
	next := make([]string, len(t.columns))
	seen := make(map[string]bool, len(t.columns))
	for i, c := range t.columns {
		name := c
		if to, ok := mapping[c]; ok {
			name = to
		}
		if seen[name] {
			return fmt.Errorf("rename produces duplicate column %q", name)
		}
		seen[name] = true
		next[i] = name
	}

	for i := range t.rows {
		cells := make(map[string]Value, len(next))
		for j, old := range t.columns {
			cells[next[j]] = t.rows[i].cells[old]
		}
		t.rows[i].cells = cells
	}
	t.columns = next
	return nil
}

// Set replaces the cell at column for the row at position i.
// The column must exist.
func (t *Table) Set(i int, column string, v Value) {
	if !t.HasColumn(column) {
		panic(fmt.Sprintf("table: unknown column %q", column))
	}
	t.rows[i].cells[column] = v
}

// Map replaces every cell of column with fn(row). The column must exist.
func (t *Table) Map(column string, fn func(Row) Value) {
	if !t.HasColumn(column) {
		panic(fmt.Sprintf("table: unknown column %q", column))
	}
	for i := range t.rows {
		t.rows[i].cells[column] = fn(t.rows[i])
	}
}

// AddColumn appends a column computed by fn, or overwrites it if it
// already exists.
func (t *Table) AddColumn(name string, fn func(Row) Value) {
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
	for i := range t.rows {
		t.rows[i].cells[name] = fn(t.rows[i])
	}
}

// FillMissing replaces every Missing cell in the table with v and returns
// the number of cells replaced.
func (t *Table) FillMissing(v Value) int {
	n := 0
	for i := range t.rows {
		for _, c := range t.columns {
			if t.rows[i].cells[c].IsMissing() {
				t.rows[i].cells[c] = v
				n++
			}
		}
	}
	return n
}

// Records returns the rows as column→value maps, suitable for encoding.
func (t *Table) Records() []map[string]Value {
	out := make([]map[string]Value, len(t.rows))
	for i, r := range t.rows {
		m := make(map[string]Value, len(t.columns))
		for _, c := range t.columns {
			m[c] = r.cells[c]
		}
		out[i] = m
	}
	return out
}
