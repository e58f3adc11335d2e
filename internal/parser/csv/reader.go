// Package csv reads a daily report CSV into a schema.Table.
//
// Report files come from several tool chains over the years: most are plain
// UTF-8, some carry a UTF-8 BOM on the first header cell, and a handful were
// re-saved as UTF-16. Input is decoded through a BOM-sniffing transformer so
// callers always see clean UTF-8 headers.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/hereithel-180303/ota-exam/internal/schema"
)

// Options tunes the reader. The zero value reads comma-separated input with
// strict quoting.
type Options struct {
	Comma      rune
	LazyQuotes bool
	// OnRowError receives unparsable lines; the line is skipped. When nil,
	// the first row error aborts the read.
	OnRowError func(line int, err error)
}

// ReadTable reads all of r. The first record is the header; cells are kept
// as raw strings and header names are returned as written (minus any BOM).
// Rows may be shorter or longer than the header.
func ReadTable(ctx context.Context, r io.Reader, opt Options) (*schema.Table, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &schema.Table{Columns: append([]string(nil), hdr...)}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := cr.Read()
		line++
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if opt.OnRowError != nil && errors.As(err, &pe) {
				opt.OnRowError(line, err)
				continue
			}
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
}
