package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlStateUndefinedTable is raised when the target partition does not exist.
const sqlStateUndefinedTable = "42P01"

// Reconciler removes rows previously loaded for a report date so that a
// re-run replaces them instead of duplicating them.
type Reconciler struct {
	Exec  Execer
	Table string
}

// ClearSQL returns the delete statement for date's partition. The date itself
// is bound as $1.
func ClearSQL(table string, date time.Time) string {
	return fmt.Sprintf("DELETE FROM %s WHERE report_date = $1",
		QuoteFQN(PartitionName(table, date.Year())))
}

// Clear deletes every row tagged with date and returns how many were removed.
// A partition that does not exist yet holds nothing stale and yields (0, nil).
func (r Reconciler) Clear(ctx context.Context, date time.Time) (int64, error) {
	if r.Exec == nil {
		return 0, fmt.Errorf("reconcile: no executor")
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	n, err := r.Exec.Exec(ctx, ClearSQL(r.Table, day), day)
	if err != nil {
		if IsUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reconcile %s: %w", day.Format(time.DateOnly), err)
	}
	return n, nil
}

// IsUndefinedTable reports whether err is Postgres' "relation does not exist".
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUndefinedTable
}
