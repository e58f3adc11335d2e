// Package memstore is an in-memory storage.Store that behaves like a table
// range-partitioned by year on report_date. It backs the -dry-run mode of the
// ingest command and the pipeline tests.
//
// Only the statements issued by package storage are understood: partition
// create-if-absent, base-table bootstrap and the per-date delete.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hereithel-180303/ota-exam/internal/schema"
	"github.com/hereithel-180303/ota-exam/internal/storage"
)

var (
	reCreatePartition = regexp.MustCompile(`^CREATE TABLE IF NOT EXISTS (\S+) PARTITION OF (\S+) FOR VALUES`)
	reCreateBase      = regexp.MustCompile(`^CREATE TABLE IF NOT EXISTS (\S+) \(`)
	reDelete          = regexp.MustCompile(`^DELETE FROM (\S+) WHERE report_date = \$1`)
)

// Row is one stored record keyed by column name.
type Row map[string]any

// Store is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	partitions map[string][]Row
	inserts    int
	execs      []string

	// FailInsert, when set, is consulted before every InsertRows call with the
	// 1-based call number; a non-nil error fails that call.
	FailInsert func(call int, rows [][]any) error
	// FailExec, when set, can fail any Exec by statement.
	FailExec func(sql string) error
	// AcquireErr is returned by Acquire when non-nil.
	AcquireErr error
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{partitions: make(map[string][]Row)}
}

// Exec implements storage.Execer.
func (s *Store) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, sql)

	if s.FailExec != nil {
		if err := s.FailExec(sql); err != nil {
			return 0, err
		}
	}

	switch {
	case reCreatePartition.MatchString(sql):
		name := unquote(reCreatePartition.FindStringSubmatch(sql)[1])
		if _, ok := s.partitions[name]; !ok {
			s.partitions[name] = nil
		}
		return 0, nil

	case reCreateBase.MatchString(sql):
		return 0, nil

	case reDelete.MatchString(sql):
		name := unquote(reDelete.FindStringSubmatch(sql)[1])
		rows, ok := s.partitions[name]
		if !ok {
			return 0, &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", name)}
		}
		if len(args) != 1 {
			return 0, fmt.Errorf("memstore: delete expects 1 argument, got %d", len(args))
		}
		day, ok := args[0].(time.Time)
		if !ok {
			return 0, fmt.Errorf("memstore: delete argument %T is not a time.Time", args[0])
		}
		kept := rows[:0]
		var n int64
		for _, r := range rows {
			if sameDay(r[schema.ColReportDate], day) {
				n++
				continue
			}
			kept = append(kept, r)
		}
		s.partitions[name] = kept
		return n, nil
	}
	return 0, fmt.Errorf("memstore: unsupported statement: %s", sql)
}

// Acquire implements storage.Store.
func (s *Store) Acquire(ctx context.Context) (storage.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	return &conn{s: s}, nil
}

// Partitions returns the existing partition names, sorted.
func (s *Store) Partitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.partitions))
	for name := range s.partitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Rows returns copies of the rows stored for date across all partitions.
func (s *Store) Rows(date time.Time) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Row
	for _, rows := range s.partitions {
		for _, r := range rows {
			if sameDay(r[schema.ColReportDate], date) {
				cp := make(Row, len(r))
				for k, v := range r {
					cp[k] = v
				}
				out = append(out, cp)
			}
		}
	}
	return out
}

// Count returns the total number of stored rows.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rows := range s.partitions {
		n += len(rows)
	}
	return n
}

// Statements returns every statement passed to Exec, in order.
func (s *Store) Statements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.execs...)
}

type conn struct {
	s        *Store
	released bool
}

func (c *conn) Begin(ctx context.Context) (storage.Tx, error) {
	if c.released {
		return nil, errors.New("memstore: connection released")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tx{s: c.s}, nil
}

func (c *conn) Release() { c.released = true }

type pending struct {
	partition string
	row       Row
}

type tx struct {
	s    *Store
	rows []pending
	done bool
}

func (t *tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if t.done {
		return 0, errors.New("memstore: tx closed")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.inserts++
	if t.s.FailInsert != nil {
		if err := t.s.FailInsert(t.s.inserts, rows); err != nil {
			return 0, err
		}
	}

	for _, raw := range rows {
		if len(raw) != len(columns) {
			return 0, fmt.Errorf("memstore: row has %d values for %d columns", len(raw), len(columns))
		}
		r := make(Row, len(columns))
		for i, c := range columns {
			r[c] = raw[i]
		}
		d, ok := r[schema.ColReportDate].(time.Time)
		if !ok {
			return 0, &pgconn.PgError{Code: "23502", Message: "null value in column \"report_date\""}
		}
		name := storage.PartitionName(table, d.Year())
		if _, ok := t.s.partitions[name]; !ok {
			return 0, &pgconn.PgError{Code: "23514", Message: fmt.Sprintf("no partition of relation %q found for row", table)}
		}
		t.rows = append(t.rows, pending{partition: name, row: r})
	}
	return int64(len(rows)), nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("memstore: tx closed")
	}
	t.done = true
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, p := range t.rows {
		t.s.partitions[p.partition] = append(t.s.partitions[p.partition], p.row)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.done = true
	t.rows = nil
	return nil
}

func sameDay(v any, day time.Time) bool {
	d, ok := v.(time.Time)
	if !ok {
		return false
	}
	y1, m1, d1 := d.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// unquote reverses pgx.Identifier.Sanitize for names without embedded dots.
func unquote(s string) string {
	parts := strings.Split(s, `"."`)
	for i, p := range parts {
		p = strings.Trim(p, `"`)
		parts[i] = strings.ReplaceAll(p, `""`, `"`)
	}
	return strings.Join(parts, ".")
}
