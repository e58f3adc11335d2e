// Command ingest loads CSSE daily report CSVs for the date range named in the
// run control file into the year-partitioned covid_daily_reports table.
//
// It takes no positional arguments; deployment settings come from flags or
// their environment variables (see internal/config). Exit status is 0 after a
// completed run, even when individual files failed, and 1 when the run could
// not proceed at all.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/hereithel-180303/ota-exam/internal/config"
	"github.com/hereithel-180303/ota-exam/internal/metrics"
	"github.com/hereithel-180303/ota-exam/internal/metrics/datadog"
	"github.com/hereithel-180303/ota-exam/internal/metrics/prompush"
	"github.com/hereithel-180303/ota-exam/internal/pipeline"
	"github.com/hereithel-180303/ota-exam/internal/storage"
	"github.com/hereithel-180303/ota-exam/internal/storage/memstore"
	"github.com/hereithel-180303/ota-exam/internal/storage/postgres"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "ingest: load .env: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, out io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(out)
	cfg, err := config.LoadFromArgs(fs, getenv, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(out, "ingest: unexpected arguments: %v\n", fs.Args())
		return 1
	}

	log := newLogger(out, cfg.Verbose).With("run_id", uuid.NewString())

	issues := cfg.Validate()
	for _, iss := range issues {
		lvl := slog.LevelWarn
		if iss.Severity == config.SeverityError {
			lvl = slog.LevelError
		}
		log.Log(ctx, lvl, "config: "+iss.Message, "flag", iss.Path)
	}
	if config.HasErrors(issues) {
		return 1
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Error("config: time zone", "err", err)
		return 1
	}

	flush := setupMetrics(cfg, log)
	defer flush()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("ingest: destination unavailable", "err", err)
		return 1
	}
	defer closeStore()

	p, err := pipeline.New(pipeline.Config{
		ControlFile: cfg.ControlFile,
		SourceDir:   cfg.ReportsDir,
		Table:       cfg.Table,
		BatchSize:   cfg.BatchSize,
		Location:    loc,
		Logger:      log,
		Store:       store,
		Job:         cfg.Job,
	})
	if err != nil {
		log.Error("ingest: build pipeline", "err", err)
		return 1
	}

	start := time.Now()
	sum, err := p.Run(ctx)
	if err != nil {
		log.Error("ingest: run aborted", "err", err, "dates_done", len(sum.Outcomes))
		return 1
	}
	log.Info("ingest: done",
		"dry_run", cfg.DryRun,
		"failed", sum.Count(pipeline.StateFailedFile),
		"rows", sum.RowsCommitted(),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return 0
}

// openStore returns the destination and its cleanup. A dry run uses an
// in-memory store.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, func(), error) {
	if cfg.DryRun {
		log.Warn("ingest: dry run, nothing will be written")
		return memstore.New(), func() {}, nil
	}

	s, err := postgres.Open(ctx, postgres.Config{
		DSN:            cfg.ConnString(),
		ConnectTimeout: cfg.ConnectTimeout,
		MaxConns:       2,
		PingAttempts:   uint64(cfg.PingAttempts),
	}, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoCreateTable {
		if err := postgres.EnsureTable(ctx, s, cfg.Table); err != nil {
			s.Close()
			return nil, nil, err
		}
		log.Info("ingest: base table ensured", "table", cfg.Table)
	}
	return s, s.Close, nil
}

// setupMetrics installs the configured backend and returns its flush. Backend
// failures disable metrics rather than the run.
func setupMetrics(cfg *config.Config, log *slog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsBackend {
	case config.MetricsPushgateway:
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case config.MetricsDatadog:
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  "covid.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		log.Debug("metrics: disabled", "backend", cfg.MetricsBackend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend init failed, using nop", "backend", cfg.MetricsBackend, "err", err)
		return func() {}
	}

	metrics.SetBackend(b)
	log.Debug("metrics: enabled", "backend", cfg.MetricsBackend)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", "err", err)
		}
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(formatRFC3339Millis(a.Value.Time()))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s.%03dZ", t.Format("2006-01-02T15:04:05"), t.Nanosecond()/1_000_000)
}
