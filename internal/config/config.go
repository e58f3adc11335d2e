// Package config centralizes the ingest command's configuration. Every
// tunable is a command-line flag whose default is seeded from an environment
// variable, so deployments configure the job through the scheduler's env and
// tests stay hermetic through LoadFromArgs.
//
// Typical usage:
//
//	_ = config.LoadDotEnv(".env")
//	cfg, err := config.Load() // reads os.Args and os.Environ
//
// For tests:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-batch_size=10"})
package config

import (
	"errors"
	"flag"
	iofs "io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Defaults matching the scheduler deployment the job was written for.
const (
	DefaultDataDir   = "/opt/airflow/data"
	ReportsSubdir    = "csse_covid_19_daily_reports"
	ControlFileName  = "run_date.txt"
	DefaultTable     = "covid_daily_reports"
	DefaultBatchSize = 1000
	DefaultTimeZone  = "Asia/Manila"
)

// Metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

// Config holds all process configuration derived from flags and environment
// variables. It is a plain value and safe to copy after construction.
type Config struct {
	// Inputs.
	DataDir     string // Root of the scheduler's data volume.
	ReportsDir  string // Directory of MM-DD-YYYY.csv files; defaults under DataDir.
	ControlFile string // run_date.txt; defaults under DataDir.
	TimeZone    string // Zone in which a blank control date means "today".

	// Destination. DSN wins over the discrete PG_* parts when set.
	DSN        string
	PGUser     string
	PGPassword string
	PGHost     string
	PGPort     string
	PGDatabase string
	Table      string

	BatchSize       int
	AutoCreateTable bool          // CREATE the partitioned base table if absent.
	ConnectTimeout  time.Duration // Per-dial timeout.
	PingAttempts    int           // Startup connectivity retries.
	DryRun          bool          // Load into an in-memory store instead of Postgres.

	// Observability.
	MetricsBackend string // none | pushgateway | datadog
	PushgatewayURL string
	DatadogAddr    string
	Job            string
	Verbose        bool
}

// LoadFromArgs builds a Config by defining flags on fs, wiring each flag to an
// environment-variable fallback via getenv, and then parsing args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
//
// ReportsDir and ControlFile left empty are derived from DataDir.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOr := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOr := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}
	durEnvOr := func(k string, d time.Duration) time.Duration {
		if v := getenv(k); v != "" {
			if dur, err := time.ParseDuration(v); err == nil {
				return dur
			}
		}
		return d
	}

	// Inputs
	fs.StringVar(&cfg.DataDir, "data_dir", envOr("DATA_DIR", DefaultDataDir), "Scheduler data directory")
	fs.StringVar(&cfg.ReportsDir, "reports_dir", getenv("REPORTS_DIR"), "Daily report CSV directory (default <data_dir>/"+ReportsSubdir+")")
	fs.StringVar(&cfg.ControlFile, "control_file", getenv("CONTROL_FILE"), "Run date control file (default <data_dir>/"+ControlFileName+")")
	fs.StringVar(&cfg.TimeZone, "timezone", envOr("INGEST_TIMEZONE", DefaultTimeZone), "IANA zone used to resolve a blank run date to today")

	// DB connectivity
	fs.StringVar(&cfg.DSN, "dsn", getenv("PG_DSN"), "Full Postgres DSN; overrides the PG_* parts")
	fs.StringVar(&cfg.PGUser, "pg_user", envOr("PG_USERNAME", "airflow"), "Postgres user")
	fs.StringVar(&cfg.PGPassword, "pg_password", envOr("PG_PASSWORD", "airflow"), "Postgres password")
	fs.StringVar(&cfg.PGHost, "pg_host", envOr("PG_HOST", "postgres"), "Postgres host")
	fs.StringVar(&cfg.PGPort, "pg_port", envOr("PG_PORT", "5432"), "Postgres port")
	fs.StringVar(&cfg.PGDatabase, "pg_database", envOr("PG_DATABASE", "covid"), "Postgres database")
	fs.StringVar(&cfg.Table, "table", envOr("INGEST_TABLE", DefaultTable), "Partitioned destination table, optionally schema-qualified")

	// Loading
	fs.IntVar(&cfg.BatchSize, "batch_size", intEnvOr("BATCH_SIZE", DefaultBatchSize), "Rows per insert transaction")
	fs.BoolVar(&cfg.AutoCreateTable, "auto_create_table", boolEnvOr("AUTO_CREATE_TABLE", false), "Create the partitioned base table if it does not exist")
	fs.DurationVar(&cfg.ConnectTimeout, "connect_timeout", durEnvOr("PG_CONNECT_TIMEOUT", 10*time.Second), "Postgres dial timeout")
	fs.IntVar(&cfg.PingAttempts, "ping_attempts", intEnvOr("PG_PING_ATTEMPTS", 5), "Startup connectivity retries")
	fs.BoolVar(&cfg.DryRun, "dry_run", boolEnvOr("DRY_RUN", false), "Run against an in-memory store; nothing is written")

	// Observability
	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOr("METRICS_BACKEND", MetricsNone), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway base URL")
	fs.StringVar(&cfg.DatadogAddr, "datadog_addr", envOr("DD_DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")
	fs.StringVar(&cfg.Job, "job", envOr("JOB_NAME", "covid_daily_reports"), "Job name used for metrics and logs")
	fs.BoolVar(&cfg.Verbose, "v", boolEnvOr("VERBOSE", false), "Debug logging")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ReportsDir == "" {
		cfg.ReportsDir = filepath.Join(cfg.DataDir, ReportsSubdir)
	}
	if cfg.ControlFile == "" {
		cfg.ControlFile = filepath.Join(cfg.DataDir, ControlFileName)
	}
	return cfg, nil
}

// Load is the production entry point. It wires the loader to the process
// flag set, reads environment variables via os.Getenv, and parses os.Args[1:].
func Load() (*Config, error) {
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ConnString returns DSN when set, otherwise a postgres:// URL built from the
// PG_* parts.
func (c *Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PGUser, c.PGPassword),
		Host:   net.JoinHostPort(c.PGHost, c.PGPort),
		Path:   "/" + c.PGDatabase,
	}
	return u.String()
}

// Location resolves TimeZone; an empty value means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}
