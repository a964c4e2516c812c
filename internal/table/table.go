// Package table holds the in-memory spreadsheet model used by the generator
// and reads and writes it as .xlsx workbooks.
package table

// Kind identifies what a cell holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Cell is a single spreadsheet value. Value holds the textual form for every
// kind: the raw number for KindNumber and "TRUE"/"FALSE" for KindBool.
type Cell struct {
	Kind  Kind
	Value string
}

// Null is the missing-value marker. It is written as a blank cell.
var Null = Cell{}

// Text returns a string cell.
func Text(s string) Cell {
	return Cell{Kind: KindString, Value: s}
}

// Number returns a numeric cell from its textual form (e.g. "42", "3.5").
func Number(s string) Cell {
	return Cell{Kind: KindNumber, Value: s}
}

// Bool returns a boolean cell.
func Bool(b bool) Cell {
	if b {
		return Cell{Kind: KindBool, Value: "TRUE"}
	}
	return Cell{Kind: KindBool, Value: "FALSE"}
}

// IsNull reports whether the cell is the missing-value marker.
func (c Cell) IsNull() bool {
	return c.Kind == KindNull
}

// String returns the textual value; null cells render as "".
func (c Cell) String() string {
	return c.Value
}

// Table is an ordered set of named columns and rows of cells.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0 || len(t.Columns) == 0
}

// ColumnIndex returns the position of the first column named name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column named name exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// AppendRow adds a row, padding with null cells or truncating to the column count.
func (t *Table) AppendRow(cells ...Cell) {
	row := make([]Cell, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Get returns the cell at row i in the named column.
func (t *Table) Get(i int, column string) (Cell, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Null, false
	}
	return t.Rows[i][idx], true
}

// Column returns a copy of every cell in the named column.
func (t *Table) Column(name string) ([]Cell, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// SetColumn assigns value to every row of the named column. An existing
// column is overwritten in place; otherwise the column is appended.
func (t *Table) SetColumn(name string, value Cell) {
	if idx := t.ColumnIndex(name); idx >= 0 {
		for _, row := range t.Rows {
			row[idx] = value
		}
		return
	}

	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]Cell, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}
