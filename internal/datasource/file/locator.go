package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// NameLayout is the date layout of canonical report filenames (MM-DD-YYYY).
const NameLayout = "01-02-2006"

var (
	// ErrFileNotFound means no report file exists for a date. It is not
	// fatal: the date is skipped.
	ErrFileNotFound = errors.New("no report file for date")
	// ErrDirectoryAccess means the source directory could not be listed.
	ErrDirectoryAccess = errors.New("source directory not accessible")
)

// CanonicalName returns the canonical report filename for d, e.g.
// "01-22-2020.csv".
func CanonicalName(d time.Time) string {
	return d.Format(NameLayout) + ".csv"
}

// Locator finds the report file for a date inside one flat directory.
type Locator struct {
	Dir string
}

// Match describes a located report file.
type Match struct {
	Path string
	// Fuzzy is true when the canonical name was absent and the file was
	// found by substring match.
	Fuzzy bool
}

// Locate returns the report file for d.
//
// The canonical name MM-DD-YYYY.csv wins when present. Otherwise the
// directory is listed and the lexicographically first regular file whose
// name contains MM-DD-YYYY is taken. When nothing matches, the error wraps
// ErrFileNotFound; a listing failure wraps ErrDirectoryAccess.
func (l Locator) Locate(ctx context.Context, d time.Time) (Match, error) {
	if err := ctx.Err(); err != nil {
		return Match{}, err
	}

	canonical := filepath.Join(l.Dir, CanonicalName(d))
	if fi, err := os.Stat(canonical); err == nil && fi.Mode().IsRegular() {
		return Match{Path: canonical}, nil
	}

	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %s: %v", ErrDirectoryAccess, l.Dir, err)
	}

	needle := d.Format(NameLayout)
	var candidates []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.Contains(e.Name(), needle) {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return Match{}, fmt.Errorf("%w: %s", ErrFileNotFound, d.Format(time.DateOnly))
	}

	sort.Strings(candidates)
	return Match{Path: filepath.Join(l.Dir, candidates[0]), Fuzzy: true}, nil
}
