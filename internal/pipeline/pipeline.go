// Package pipeline runs one ingest: it resolves the run's date range and, for
// each date in order, locates the report file, reads and normalizes it,
// clears the date's previous rows, ensures the year's partition and loads the
// rows in batches.
//
// Failures are scoped. A bad batch loses only that batch, a bad file loses
// only that date, and only an unreadable control file or source directory
// stops the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hereithel-180303/ota-exam/internal/datasource/file"
	"github.com/hereithel-180303/ota-exam/internal/daterange"
	"github.com/hereithel-180303/ota-exam/internal/metrics"
	"github.com/hereithel-180303/ota-exam/internal/parser/csv"
	"github.com/hereithel-180303/ota-exam/internal/schema"
	"github.com/hereithel-180303/ota-exam/internal/storage"
)

// Config wires a Pipeline. Store is required; everything else has a default.
type Config struct {
	ControlFile string
	SourceDir   string
	Table       string
	BatchSize   int
	// Location is the zone in which a blank control date means today.
	Location *time.Location
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Store    storage.Store
	// Job labels metrics.
	Job string
}

// Pipeline is a configured ingest run. It is not safe for concurrent Runs.
type Pipeline struct {
	cfg     Config
	log     *slog.Logger
	locator file.Locator
	rec     storage.Reconciler
	parts   storage.PartitionManager
	loader  storage.BulkLoader
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if cfg.Table == "" {
		return nil, errors.New("pipeline: table is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Pipeline{
		cfg:     cfg,
		log:     cfg.Logger,
		locator: file.Locator{Dir: cfg.SourceDir},
		rec:     storage.Reconciler{Exec: cfg.Store, Table: cfg.Table},
		parts:   storage.PartitionManager{Exec: cfg.Store, Table: cfg.Table, Logger: cfg.Logger},
		loader: storage.BulkLoader{
			Store:     cfg.Store,
			Table:     cfg.Table,
			BatchSize: cfg.BatchSize,
			Logger:    cfg.Logger,
		},
	}, nil
}

// Run processes every date of the resolved range. The error is non-nil only
// for run-scoped failures: a malformed control file or an unreadable source
// directory. A missing control file is logged and yields an empty Summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	start := p.cfg.Clock.Now()
	rng, err := daterange.Resolve(p.cfg.ControlFile, p.cfg.Clock, p.cfg.Location)
	metrics.RecordStep(p.cfg.Job, StepResolve, err, p.cfg.Clock.Since(start))
	switch {
	case errors.Is(err, daterange.ErrMissingControlInput):
		p.log.Error("pipeline: control file missing, nothing to do", "path", p.cfg.ControlFile, "err", err)
		return sum, nil
	case err != nil:
		return sum, fmt.Errorf("pipeline: resolve date range: %w", err)
	}
	sum.Range = rng

	days := rng.Days()
	p.log.Info("pipeline: date range resolved", "range", rng.String(), "dates", len(days))

	for _, d := range days {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		out, err := p.processDate(ctx, d)
		if err != nil {
			return sum, err
		}
		sum.Outcomes = append(sum.Outcomes, out)
		metrics.RecordFile(p.cfg.Job, string(out.State))
	}

	p.log.Info("pipeline: run finished",
		"range", rng.String(),
		"dates", len(sum.Outcomes),
		"loaded", sum.Count(StateDone),
		"skipped", sum.Count(StateNoFile),
		"failed", sum.Count(StateFailedFile),
		"partial", sum.Partial(),
		"rows", sum.RowsCommitted(),
	)
	return sum, nil
}

// processDate returns a non-nil error only for run-scoped failures.
func (p *Pipeline) processDate(ctx context.Context, d time.Time) (DateOutcome, error) {
	out := DateOutcome{Date: d}
	log := p.log.With("date", d.Format(time.DateOnly))

	start := p.cfg.Clock.Now()
	m, err := p.locator.Locate(ctx, d)
	metrics.RecordStep(p.cfg.Job, StepLocate, err, p.cfg.Clock.Since(start))
	switch {
	case errors.Is(err, file.ErrFileNotFound):
		log.Warn("pipeline: no file for date, skipping", "dir", p.cfg.SourceDir)
		out.State = StateNoFile
		return out, nil
	case err != nil:
		return out, fmt.Errorf("pipeline: locate %s: %w", d.Format(time.DateOnly), err)
	}
	if m.Fuzzy {
		log.Warn("pipeline: canonical file missing, using fallback match", "file", filepath.Base(m.Path))
	}

	out.File = m.Path
	p.processFile(ctx, log.With("file", filepath.Base(m.Path)), d, &out)
	return out, nil
}

// processFile fills out for one located file. Any error or panic ends in
// StateFailedFile.
func (p *Pipeline) processFile(ctx context.Context, log *slog.Logger, d time.Time, out *DateOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out.State = StateFailedFile
			out.Err = &FileError{File: out.File, Step: "panic", Err: fmt.Errorf("%v", r)}
			log.Error("pipeline: panic while processing file", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	fail := func(step string, err error) {
		out.State = StateFailedFile
		out.Err = &FileError{File: out.File, Step: step, Err: err}
		log.Error("pipeline: file failed", "step", step, "err", err)
	}

	if fp, err := file.Fingerprint(out.File); err == nil {
		out.Fingerprint = fp
	}

	// Read and normalize.
	start := p.cfg.Clock.Now()
	tbl, skipped, err := p.read(ctx, log, out.File)
	metrics.RecordStep(p.cfg.Job, StepRead, err, p.cfg.Clock.Since(start))
	if err != nil {
		fail(StepRead, err)
		return
	}
	norm := schema.Normalize(tbl)
	load := schema.NewProjection(norm.Columns).Apply(norm, schema.Provenance{
		ReportDate: d,
		InsertedAt: p.cfg.Clock.Now().UTC(),
		Filename:   filepath.Base(out.File),
	})
	metrics.RecordRow(p.cfg.Job, "read", int64(load.Len()))
	metrics.RecordRow(p.cfg.Job, "skipped", int64(skipped))
	log.Info("pipeline: file read",
		"rows", load.Len(), "skipped_lines", skipped, "columns", len(load.Columns), "fingerprint", out.Fingerprint)

	// Clear previous rows. A failure here risks duplicates but does not stop
	// the load.
	start = p.cfg.Clock.Now()
	deleted, err := p.rec.Clear(ctx, d)
	metrics.RecordStep(p.cfg.Job, StepReconcile, err, p.cfg.Clock.Since(start))
	if err != nil {
		log.Error("pipeline: could not clear previous rows, continuing", "err", err)
	} else {
		out.Deleted = deleted
		metrics.RecordRow(p.cfg.Job, "deleted", deleted)
		log.Debug("pipeline: previous rows cleared", "deleted", deleted)
	}

	// Partition.
	start = p.cfg.Clock.Now()
	err = p.parts.Ensure(ctx, []time.Time{d})
	metrics.RecordStep(p.cfg.Job, StepPartition, err, p.cfg.Clock.Since(start))
	if err != nil {
		fail(StepPartition, err)
		return
	}

	// Load.
	start = p.cfg.Clock.Now()
	res, err := p.loader.Load(ctx, load)
	metrics.RecordStep(p.cfg.Job, StepLoad, err, p.cfg.Clock.Since(start))
	out.Load = res
	metrics.RecordRow(p.cfg.Job, "committed", res.RowsCommitted)
	metrics.RecordRow(p.cfg.Job, "failed", res.RowsFailed)
	metrics.RecordBatches(p.cfg.Job, "committed", int64(res.Committed))
	metrics.RecordBatches(p.cfg.Job, "failed", int64(res.Failed))
	if err != nil {
		fail(StepLoad, err)
		return
	}

	out.State = StateDone
	lvl := slog.LevelInfo
	if !res.Complete() {
		lvl = slog.LevelWarn
	}
	log.Log(ctx, lvl, "pipeline: file loaded",
		"complete", res.Complete(),
		"batches", res.Batches,
		"failed_batches", res.Failed,
		"rows", res.RowsCommitted,
		"failed_rows", res.RowsFailed,
	)
}

func (p *Pipeline) read(ctx context.Context, log *slog.Logger, path string) (*schema.Table, int, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	skipped := 0
	tbl, err := csv.ReadTable(ctx, rc, csv.Options{
		OnRowError: func(line int, err error) {
			skipped++
			log.Warn("pipeline: skipping unparsable line", "line", line, "err", err)
		},
	})
	if err != nil {
		return nil, skipped, err
	}
	return tbl, skipped, nil
}
