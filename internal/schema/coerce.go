package schema

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayouts are the last_update spellings seen across CSSE vintages,
// tried in order.
var TimestampLayouts = []string{
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
}

// Coerce converts a normalized cell to the Go type of kind. Values that do
// not parse become nil; Coerce never fails.
func Coerce(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	switch kind {
	case KindInt:
		return parseInt(s)
	case KindFloat:
		return parseFloat(s)
	case KindTimestamp:
		return parseTimestamp(s)
	case KindDate:
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return t
		}
		return nil
	default:
		return s
	}
}

func parseInt(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Older files carry counts and FIPS codes as "45001.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f >= 1<<63 || f < -(1<<63) {
		return nil
	}
	return int64(f)
}

func parseFloat(s string) any {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func parseTimestamp(s string) any {
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return nil
}
