package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hereithel-180303/ota-exam/internal/schema"
	"github.com/hereithel-180303/ota-exam/internal/storage"
)

// BuildCreateTableSQL builds the bootstrap statement for the partitioned base
// table from the canonical schema:
//
//	CREATE TABLE IF NOT EXISTS "t" ("fips" bigint, ...) PARTITION BY RANGE ("report_date")
//
// Partitions are created separately by storage.PartitionManager.
func BuildCreateTableSQL(table string, cols []schema.Column) (string, error) {
	fqn := strings.TrimSpace(table)
	if fqn == "" {
		return "", fmt.Errorf("postgres ddl: table FQN must not be empty")
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}

	var hasKey bool
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("postgres ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("postgres ddl: column %s missing SQLType", name)
		}
		def := pgx.Identifier{name}.Sanitize() + " " + typ
		if c.NotNull {
			def += " NOT NULL"
		}
		if name == schema.ColReportDate {
			hasKey = true
		}
		defs = append(defs, def)
	}
	if !hasKey {
		return "", fmt.Errorf("postgres ddl: partition key %s missing from %s", schema.ColReportDate, fqn)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) PARTITION BY RANGE (%s)",
		storage.QuoteFQN(fqn),
		strings.Join(defs, ",\n  "),
		pgx.Identifier{schema.ColReportDate}.Sanitize(),
	), nil
}

// EnsureTable creates the partitioned base table if it does not exist.
func EnsureTable(ctx context.Context, ex storage.Execer, table string) error {
	sql, err := BuildCreateTableSQL(table, schema.Columns)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	return nil
}
