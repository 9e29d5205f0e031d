// Package dataset loads the fixed-schema tables behind the dashboards and
// computes the filters and aggregates they display.
package dataset

// Table is an in-memory, read-only grid of string cells. Rows may be shorter
// than Columns when the source was ragged; missing cells read as "".
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`

	index map[string]int
}

// NewTable builds a table over the given columns and rows. The slices are not copied.
func NewTable(columns []string, rows [][]string) *Table {
	if rows == nil {
		rows = [][]string{}
	}
	t := &Table{Columns: columns, Rows: rows}
	t.ColumnIndex("")
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return NewTable(cols, nil)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// ColumnIndex returns the position of name and whether it exists.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	if t.index == nil {
		t.index = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			if _, dup := t.index[c]; !dup {
				t.index[c] = i
			}
		}
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Cell returns the value of column col in row r, or "" when either is absent.
func (t *Table) Cell(r int, col string) string {
	i, ok := t.ColumnIndex(col)
	if !ok || r < 0 || r >= t.Len() {
		return ""
	}
	return cell(t.Rows[r], i)
}

// Records returns the rows as column-keyed maps, which is what the API serves.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, t.Len())
	for _, row := range t.rows() {
		rec := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = cell(row, i)
		}
		out = append(out, rec)
	}
	return out
}

func (t *Table) rows() [][]string {
	if t == nil {
		return nil
	}
	return t.Rows
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
