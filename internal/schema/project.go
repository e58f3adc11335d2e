package schema

import "time"

// Provenance carries the per-file values stamped on every projected row.
type Provenance struct {
	ReportDate time.Time
	InsertedAt time.Time
	Filename   string
}

// Projection maps a normalized file's columns onto the canonical insert
// order. It is computed once per file from the header alone, so per-row work
// is a fixed index lookup.
//
// Canonical CSV columns missing from the file are omitted (not emitted as
// NULL columns); columns outside the canonical schema are dropped. The three
// derived columns (report_date, etl_insertion_date, filename) are always
// present and always last.
type Projection struct {
	columns []string
	src     []int // source index per output column; -1 for derived columns
	kinds   []Kind
}

// NewProjection builds the projection for a normalized header.
func NewProjection(header []string) *Projection {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	p := &Projection{}
	for _, c := range Columns {
		if c.Derived {
			p.columns = append(p.columns, c.Name)
			p.src = append(p.src, -1)
			p.kinds = append(p.kinds, c.Kind)
			continue
		}
		if ix, ok := pos[c.Name]; ok {
			p.columns = append(p.columns, c.Name)
			p.src = append(p.src, ix)
			p.kinds = append(p.kinds, c.Kind)
		}
	}
	return p
}

// Columns returns the output column order.
func (p *Projection) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Apply projects and coerces every row of t, stamping provenance values into
// the derived columns.
func (p *Projection) Apply(t *Table, prov Provenance) *Table {
	out := &Table{Columns: p.Columns(), Rows: make([][]any, 0, t.Len())}
	if t == nil {
		return out
	}

	reportDate := time.Date(prov.ReportDate.Year(), prov.ReportDate.Month(), prov.ReportDate.Day(), 0, 0, 0, 0, time.UTC)

	for _, r := range t.Rows {
		nr := make([]any, len(p.columns))
		for i, name := range p.columns {
			si := p.src[i]
			if si < 0 {
				switch name {
				case ColReportDate:
					nr[i] = reportDate
				case ColETLInsertionDate:
					nr[i] = prov.InsertedAt
				case ColFilename:
					nr[i] = prov.Filename
				}
				continue
			}
			if si < len(r) {
				nr[i] = Coerce(p.kinds[i], r[si])
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}
