package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// PartitionManager creates yearly range partitions of Table on demand.
type PartitionManager struct {
	Exec   Execer
	Table  string
	Logger *slog.Logger
}

// DistinctYears returns the calendar years present in dates, ascending.
func DistinctYears(dates []time.Time) []int {
	seen := make(map[int]struct{}, len(dates))
	years := make([]int, 0, len(dates))
	for _, d := range dates {
		y := d.Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// PartitionDDL builds the create-if-absent statement for year's partition.
// Postgres does not accept bind parameters in partition bounds, so the bounds
// are rendered from computed dates only.
func PartitionDDL(table string, year int) string {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
		QuoteFQN(PartitionName(table, year)),
		QuoteFQN(table),
		from.Format(time.DateOnly),
		to.Format(time.DateOnly),
	)
}

// Ensure makes sure a partition exists for every year among dates. It stops
// at the first failure.
func (m PartitionManager) Ensure(ctx context.Context, dates []time.Time) error {
	if m.Exec == nil {
		return fmt.Errorf("partition: no executor")
	}
	for _, y := range DistinctYears(dates) {
		if _, err := m.Exec.Exec(ctx, PartitionDDL(m.Table, y)); err != nil {
			return fmt.Errorf("partition %s: %w", PartitionName(m.Table, y), err)
		}
		if m.Logger != nil {
			m.Logger.Debug("partition: ensured", "partition", PartitionName(m.Table, y))
		}
	}
	return nil
}
