package storage

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// SplitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func SplitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// QuoteFQN returns the quoted form of a possibly schema-qualified name,
// e.g. public.covid_daily_reports -> "public"."covid_daily_reports".
func QuoteFQN(fqn string) string { return SplitFQN(fqn).Sanitize() }

// PartitionName returns the yearly child table of table, keeping the parent's
// schema: covid_daily_reports -> covid_daily_reports_2021.
func PartitionName(table string, year int) string {
	return fmt.Sprintf("%s_%04d", strings.TrimSpace(table), year)
}
