package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hereithel-180303/ota-exam/internal/schema"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 1000

// LoadResult summarizes one file's load. A file whose batches did not all
// commit is partially loaded; the rows of failed batches are absent.
type LoadResult struct {
	Batches       int
	Committed     int
	Failed        int
	RowsCommitted int64
	RowsFailed    int64
}

// Complete reports whether every batch committed.
func (r LoadResult) Complete() bool { return r.Failed == 0 }

// Batches splits rows into consecutive slices of at most size rows. The
// slices share rows' backing array.
func Batches(rows [][]any, size int) [][][]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(rows) == 0 {
		return nil
	}
	out := make([][][]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}

// SerializeBatch returns a copy of rows with every float64 rendered to two
// decimal places. nil values stay nil.
func SerializeBatch(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		r := make([]any, len(row))
		for j, v := range row {
			if f, ok := v.(float64); ok {
				r[j] = strconv.FormatFloat(f, 'f', 2, 64)
				continue
			}
			r[j] = v
		}
		out[i] = r
	}
	return out
}

// BulkLoader inserts a load-ready table in fixed-size batches, one
// transaction per batch, over a single connection.
type BulkLoader struct {
	Store     Store
	Table     string
	BatchSize int
	Logger    *slog.Logger
}

// Load inserts t's rows. A failing batch is rolled back and logged, and the
// next batch proceeds. The returned error is non-nil only when no connection
// could be obtained or ctx ended; the result is still valid in the latter case.
func (l BulkLoader) Load(ctx context.Context, t *schema.Table) (LoadResult, error) {
	var res LoadResult
	if t.Len() == 0 {
		return res, nil
	}
	if l.Store == nil {
		return res, fmt.Errorf("loader: no store")
	}
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	log := l.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	conn, err := l.Store.Acquire(ctx)
	if err != nil {
		return res, fmt.Errorf("loader: acquire connection: %w", err)
	}
	defer conn.Release()

	batches := Batches(t.Rows, size)
	res.Batches = len(batches)
	start := time.Now()

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			for _, rest := range batches[i:] {
				res.Failed++
				res.RowsFailed += int64(len(rest))
			}
			return res, err
		}

		first := i*size + 1
		last := first + len(b) - 1
		n, err := insertBatch(ctx, conn, l.Table, t.Columns, SerializeBatch(b))
		if err != nil {
			res.Failed++
			res.RowsFailed += int64(len(b))
			log.Error("loader: batch failed",
				"batch", i+1, "of", len(batches), "rows", fmt.Sprintf("%d-%d", first, last), "err", err)
			continue
		}

		res.Committed++
		res.RowsCommitted += n
		log.Debug("loader: batch committed",
			"batch", i+1, "of", len(batches), "inserted", n, "total_inserted", res.RowsCommitted,
			"elapsed", time.Since(start).Truncate(time.Millisecond))
	}
	return res, nil
}

func insertBatch(ctx context.Context, conn Conn, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	n, err := tx.InsertRows(ctx, table, columns, rows)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return 0, fmt.Errorf("insert: %w (rollback: %v)", err, rbErr)
		}
		return 0, fmt.Errorf("insert: %w", err)
	}
	// A failed commit ends the transaction server-side; nothing to roll back.
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
