package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path names the flag.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// maxIdentLen is Postgres' NAMEDATALEN-1; longer names are silently truncated.
const maxIdentLen = 63

// Validate performs static checks and returns every issue found. It does not
// touch the network or the filesystem.
func (c *Config) Validate() []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.ReportsDir) == "" {
		add(SeverityError, "reports_dir", "must not be empty")
	}
	if strings.TrimSpace(c.ControlFile) == "" {
		add(SeverityError, "control_file", "must not be empty")
	}
	if _, err := c.Location(); err != nil {
		add(SeverityError, "timezone", "unknown time zone %q: %v", c.TimeZone, err)
	}

	if !tableName.MatchString(c.Table) {
		add(SeverityError, "table", "%q is not a plain [schema.]table identifier", c.Table)
	} else {
		// Partition children append _YYYY.
		name := c.Table[strings.LastIndex(c.Table, ".")+1:]
		if len(name)+5 > maxIdentLen {
			add(SeverityError, "table", "%q leaves no room for the _YYYY partition suffix within %d bytes", name, maxIdentLen)
		}
	}

	if c.BatchSize <= 0 {
		add(SeverityError, "batch_size", "must be > 0, got %d", c.BatchSize)
	} else if c.BatchSize > 50000 {
		add(SeverityWarning, "batch_size", "%d rows per transaction is unusually large", c.BatchSize)
	}
	if c.PingAttempts < 0 {
		add(SeverityError, "ping_attempts", "must be >= 0, got %d", c.PingAttempts)
	}
	if c.ConnectTimeout < 0 {
		add(SeverityError, "connect_timeout", "must be >= 0, got %s", c.ConnectTimeout)
	}

	if !c.DryRun {
		if _, err := pgconn.ParseConfig(c.ConnString()); err != nil {
			add(SeverityError, "dsn", "cannot parse connection string: %v", err)
		}
	} else if c.AutoCreateTable {
		add(SeverityWarning, "auto_create_table", "ignored in dry run")
	}

	switch c.MetricsBackend {
	case MetricsNone, "":
	case MetricsPushgateway:
		if strings.TrimSpace(c.PushgatewayURL) == "" {
			add(SeverityError, "pushgateway_url", "required when metrics_backend=%s", MetricsPushgateway)
		}
	case MetricsDatadog:
		if strings.TrimSpace(c.DatadogAddr) == "" {
			add(SeverityError, "datadog_addr", "required when metrics_backend=%s", MetricsDatadog)
		}
	default:
		add(SeverityError, "metrics_backend", "unknown backend %q (want %s, %s or %s)",
			c.MetricsBackend, MetricsNone, MetricsPushgateway, MetricsDatadog)
	}

	if strings.TrimSpace(c.Job) == "" {
		add(SeverityWarning, "job", "empty job name; metrics will be unlabeled")
	}
	return issues
}
