// Package schema defines the canonical daily-report schema and the pure
// transforms that move a raw CSV table onto it: header aliasing, null-marker
// normalization, value coercion, and the per-file projection used for loading.
//
// Nothing in this package touches the filesystem or the database.
package schema

// Table is an in-memory, column-ordered dataset for a single source file.
//
// Rows are aligned to Columns. A nil cell is SQL NULL. Cells produced by the
// CSV reader are strings; cells produced by Projection.Apply carry typed
// values (int64, float64, time.Time, string).
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the first column named name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of the named column in row order, or nil when the
// column does not exist.
func (t *Table) Column(name string) []any {
	ix := t.Index(name)
	if ix < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		if ix < len(r) {
			out[i] = r[ix]
		}
	}
	return out
}
