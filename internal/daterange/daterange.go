// Package daterange resolves the inclusive set of report dates a run should
// (re)process from the control file (run_date.txt).
//
// The control file holds two "label:value" lines, start first and end
// second, each value either YYYY-MM-DD or blank:
//
//	start_date:2021-01-01
//	end_date:2021-01-31
//
// A blank value on either line means "today" for both ends.
package daterange

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingControlInput means the control file does not exist.
	ErrMissingControlInput = errors.New("control input missing")
	// ErrMalformedControlInput means the control file exists but cannot be
	// interpreted as a date range.
	ErrMalformedControlInput = errors.New("control input malformed")
)

const layout = time.DateOnly

// Range is an inclusive [Start, End] span of calendar dates. Both ends are
// midnight UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Single returns the range containing only d.
func Single(d time.Time) Range {
	d = Day(d)
	return Range{Start: d, End: d}
}

// Days returns every date in the range in ascending order. A range whose
// Start is after End yields no dates.
func (r Range) Days() []time.Time {
	var out []time.Time
	for d := Day(r.Start); !d.After(Day(r.End)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(layout), r.End.Format(layout))
}

// Day truncates t to its calendar date, expressed as midnight UTC. The
// calendar date is taken in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Resolve reads the control file at path. Blank values resolve to the
// current date of clock in loc (UTC when loc is nil).
func Resolve(path string, clock clockwork.Clock, loc *time.Location) (Range, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Range{}, fmt.Errorf("%w: %s", ErrMissingControlInput, path)
		}
		return Range{}, fmt.Errorf("%w: open %s: %v", ErrMalformedControlInput, path, err)
	}
	defer f.Close()

	return Parse(f, clock, loc)
}

// Parse interprets control-file content read from r.
func Parse(r io.Reader, clock clockwork.Clock, loc *time.Location) (Range, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() && len(lines) < 2 {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Range{}, fmt.Errorf("%w: read: %v", ErrMalformedControlInput, err)
	}
	if len(lines) < 2 {
		return Range{}, fmt.Errorf("%w: want 2 lines, got %d", ErrMalformedControlInput, len(lines))
	}

	startStr, err := value(lines[0])
	if err != nil {
		return Range{}, fmt.Errorf("line 1: %w", err)
	}
	endStr, err := value(lines[1])
	if err != nil {
		return Range{}, fmt.Errorf("line 2: %w", err)
	}

	if startStr == "" || endStr == "" {
		if loc == nil {
			loc = time.UTC
		}
		return Single(clock.Now().In(loc)), nil
	}

	start, err := time.Parse(layout, startStr)
	if err != nil {
		return Range{}, fmt.Errorf("%w: start %q: %v", ErrMalformedControlInput, startStr, err)
	}
	end, err := time.Parse(layout, endStr)
	if err != nil {
		return Range{}, fmt.Errorf("%w: end %q: %v", ErrMalformedControlInput, endStr, err)
	}
	return Range{Start: start, End: end}, nil
}

// value returns the trimmed text after the first ':' of a control line.
func value(line string) (string, error) {
	_, v, ok := strings.Cut(line, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q has no label", ErrMalformedControlInput, line)
	}
	return strings.TrimSpace(v), nil
}
