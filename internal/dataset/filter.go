package dataset

import "strings"

// Filter returns the rows of t whose value in every filtered column is one of
// that column's allowed values. An empty allowed set places no restriction on
// its column. A non-empty set for a column t lacks matches nothing.
func Filter(t *Table, filters map[string][]string) *Table {
	if t == nil {
		return Empty(nil)
	}
	type allow struct {
		idx    int
		values map[string]struct{}
	}
	var active []allow
	for col, values := range filters {
		if len(values) == 0 {
			continue
		}
		idx, ok := t.ColumnIndex(col)
		if !ok {
			return NewTable(t.Columns, nil)
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[strings.TrimSpace(v)] = struct{}{}
		}
		active = append(active, allow{idx: idx, values: set})
	}
	if len(active) == 0 {
		return t
	}

	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		keep := true
		for _, a := range active {
			if _, ok := a.values[strings.TrimSpace(cell(row, a.idx))]; !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return NewTable(t.Columns, out)
}

// Where returns the rows for which keep reports true.
func Where(t *Table, keep func(row Row) bool) *Table {
	if t == nil {
		return Empty(nil)
	}
	out := make([][]string, 0)
	for _, row := range t.Rows {
		if keep(Row{table: t, cells: row}) {
			out = append(out, row)
		}
	}
	return NewTable(t.Columns, out)
}

// Row is a read-only view of one table row for use in predicates.
type Row struct {
	table *Table
	cells []string
}

// Get returns the value of col, or "" when the column is absent.
func (r Row) Get(col string) string {
	i, ok := r.table.ColumnIndex(col)
	if !ok {
		return ""
	}
	return cell(r.cells, i)
}
