package schema

import "strings"

const utf8BOM = "\uFEFF"

// nullMarkers are the cell spellings treated as absent values. Matching is
// done after trimming surrounding whitespace.
var nullMarkers = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
	"N/A":  {},
	"#N/A": {},
}

// IsNullMarker reports whether s spells an absent value.
func IsNullMarker(s string) bool {
	_, ok := nullMarkers[strings.TrimSpace(s)]
	return ok
}

// CanonicalName maps a raw header to its canonical column name. Surrounding
// whitespace and a leading BOM are removed first; unknown headers are
// returned in that cleaned form.
func CanonicalName(header string) string {
	h := strings.TrimSpace(strings.TrimPrefix(header, utf8BOM))
	if c, ok := Aliases[h]; ok {
		return c
	}
	return h
}

// Normalize returns a copy of t whose headers are canonical and whose absent
// values are nil. Unknown columns are kept under their cleaned header. The
// input table is not modified.
func Normalize(t *Table) *Table {
	if t == nil {
		return &Table{}
	}

	out := &Table{
		Columns: make([]string, len(t.Columns)),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, h := range t.Columns {
		out.Columns[i] = CanonicalName(h)
	}

	for i, r := range t.Rows {
		nr := make([]any, len(out.Columns))
		for j := range nr {
			if j >= len(r) {
				continue // short row: missing trailing cells are null
			}
			nr[j] = normalizeCell(r[j])
		}
		out.Rows[i] = nr
	}
	return out
}

func normalizeCell(v any) any {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		if IsNullMarker(s) {
			return nil
		}
		return strings.TrimSpace(s)
	default:
		return v
	}
}
