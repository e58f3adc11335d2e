// Package postgres implements storage.Store on a pgx v5 connection pool.
//
// Each batch is sent as one pgx.Batch of parameterized single-row INSERTs
// inside the caller's transaction, so a bad row fails its whole batch and
// nothing else.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hereithel-180303/ota-exam/internal/storage"
)

// Config holds Postgres store configuration.
type Config struct {
	DSN            string        // connection string for pgxpool
	ConnectTimeout time.Duration // per-dial timeout; 0 keeps the driver default
	MaxConns       int32         // 0 keeps the pool default
	PingAttempts   uint64        // startup connectivity retries after the first try
}

// Store is a Postgres-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Open builds the pool and waits until the server answers a ping, retrying
// with exponential backoff. The caller must Close the store.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := ping(ctx, pool, newPingBackOff(cfg.PingAttempts), log); err != nil {
		pool.Close()
		return nil, err
	}
	log.Debug("postgres: connected",
		"host", pcfg.ConnConfig.Host, "database", pcfg.ConnConfig.Database, "max_conns", pcfg.MaxConns)
	return &Store{pool: pool, log: log}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() { s.pool.Close() }

// Exec implements storage.Execer.
func (s *Store) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Acquire implements storage.Store.
func (s *Store) Acquire(ctx context.Context) (storage.Conn, error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

type conn struct{ c *pgxpool.Conn }

func (c *conn) Begin(ctx context.Context) (storage.Tx, error) {
	t, err := c.c.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{t: t}, nil
}

func (c *conn) Release() { c.c.Release() }

// batchTx is the part of pgx.Tx used by tx.
type batchTx interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type tx struct{ t batchTx }

// InsertRows queues one INSERT per row and sends them in a single round trip.
func (x *tx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sql, err := insertSQL(table, columns)
	if err != nil {
		return 0, err
	}

	b := &pgx.Batch{}
	for i, r := range rows {
		if len(r) != len(columns) {
			return 0, fmt.Errorf("row %d: %d values for %d columns", i, len(r), len(columns))
		}
		b.Queue(sql, r...)
	}

	br := x.t.SendBatch(ctx, b)
	var total int64
	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return total, fmt.Errorf("row %d: %w", i, err)
		}
		total += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return total, err
	}
	return total, nil
}

func (x *tx) Commit(ctx context.Context) error   { return x.t.Commit(ctx) }
func (x *tx) Rollback(ctx context.Context) error { return x.t.Rollback(ctx) }

// insertSQL renders INSERT INTO "t" ("a","b") VALUES ($1,$2).
func insertSQL(table string, columns []string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("postgres: table name must not be empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("postgres: no columns for %s", table)
	}
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		storage.QuoteFQN(table), strings.Join(cols, ", "), strings.Join(ph, ", ")), nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newPingBackOff(attempts uint64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	return backoff.WithMaxRetries(exp, attempts)
}

// ping checks connectivity, retrying per b until ctx ends.
func ping(ctx context.Context, p pinger, b backoff.BackOff, log *slog.Logger) error {
	op := func() error { return p.Ping(ctx) }
	notify := func(err error, wait time.Duration) {
		log.Warn("postgres: ping failed", "err", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}
