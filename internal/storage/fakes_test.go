package storage

import (
	"context"
	"errors"
)

// recordingExec captures statements and can fail by call number.
type recordingExec struct {
	sqls  []string
	args  [][]any
	n     int64
	errAt map[int]error
}

func (r *recordingExec) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	r.sqls = append(r.sqls, sql)
	r.args = append(r.args, args)
	if err, ok := r.errAt[len(r.sqls)]; ok {
		return 0, err
	}
	return r.n, nil
}

// fakeStore counts connections and transactions. failBatch reports whether
// the given 1-based InsertRows call should fail.
type fakeStore struct {
	acquireErr error
	failBatch  func(call int) bool

	acquired  int
	released  int
	calls     int
	commits   int
	rollbacks int
	inserted  [][][]any
	columns   []string
}

func (f *fakeStore) Exec(context.Context, string, ...any) (int64, error) { return 0, nil }

func (f *fakeStore) Acquire(context.Context) (Conn, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired++
	return fakeConn{f}, nil
}

type fakeConn struct{ f *fakeStore }

func (c fakeConn) Begin(context.Context) (Tx, error) { return &fakeTx{f: c.f}, nil }
func (c fakeConn) Release()                          { c.f.released++ }

type fakeTx struct {
	f    *fakeStore
	rows [][]any
}

func (t *fakeTx) InsertRows(_ context.Context, _ string, columns []string, rows [][]any) (int64, error) {
	t.f.calls++
	t.f.columns = columns
	if t.f.failBatch != nil && t.f.failBatch(t.f.calls) {
		return 0, errors.New("value too long for type")
	}
	t.rows = rows
	return int64(len(rows)), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.f.commits++
	t.f.inserted = append(t.f.inserted, t.rows)
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.f.rollbacks++
	return nil
}
