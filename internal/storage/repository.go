// Package storage holds the destination-facing pieces of the ingest pipeline:
// the narrow store contracts a backend must satisfy, yearly partition
// management, per-date reconciliation, and the batched loader.
//
// Nothing here opens connections. A concrete Store (see storage/postgres) is
// built by the caller and injected.
package storage

import "context"

// Execer runs a single statement and reports the affected row count.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Store is the destination database. Exec runs standalone statements (DDL and
// deletes); Acquire pins one connection for a file's batched inserts.
type Store interface {
	Execer
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is a pinned connection. Release must be called exactly once.
type Conn interface {
	Begin(ctx context.Context) (Tx, error)
	Release()
}

// Tx is one batch's unit of work.
type Tx interface {
	// InsertRows inserts rows aligned to columns into table and returns the
	// number of rows written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
