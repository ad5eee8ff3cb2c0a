// Package runner drives one packflow run: fetch the input streams, run the
// engine, publish every output table to the configured sinks and record the
// run in the history store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/engine"
	"github.com/Veraticus/packflow/internal/metrics"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/service"
	"github.com/Veraticus/packflow/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Reconciler produces the output tables from the input streams.
type Reconciler interface {
	Run(ctx context.Context, in engine.Inputs, pipelines ...engine.Pipeline) (*engine.Result, error)
}

// Runner holds the collaborators of a run. Store and Metrics are optional.
type Runner struct {
	Source  service.Source
	Engine  Reconciler
	Store   service.RunStore
	Metrics *metrics.Recorder
	Logger  *slog.Logger
	Sinks   []service.Sink
	// OnlyChanged skips tables whose digest matches the last successful run.
	OnlyChanged bool
}

// Report is the outcome of Run.
type Report struct {
	Result    *engine.Result
	Run       model.Run
	Delivered []string
	Unchanged []string
}

// Run executes pipelines (all of them when none are given). The run is
// recorded even when it fails or ctx is canceled.
func (r *Runner) Run(ctx context.Context, pipelines ...engine.Pipeline) (*Report, error) {
	if len(pipelines) == 0 {
		pipelines = engine.AllPipelines()
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := &Report{
		Run: model.Run{
			ID:        uuid.NewString(),
			StartedAt: time.Now(),
		},
	}
	for _, p := range pipelines {
		report.Run.Pipelines = append(report.Run.Pipelines, string(p))
	}
	logger = logger.With("run", report.Run.ID)
	logger.Info("Starting run", "pipelines", report.Run.Pipelines)

	tables, err := r.execute(ctx, logger, report, pipelines)
	r.finish(ctx, logger, report, tables, err)
	return report, err
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, report *Report, pipelines []engine.Pipeline) ([]*model.Table, error) {
	stage := time.Now()
	inputs, err := source.FetchAll(ctx, r.Source, engine.StreamsFor(pipelines), logger)
	if err != nil {
		return nil, err
	}
	r.observeStage("fetch", stage)

	stage = time.Now()
	res, err := r.Engine.Run(ctx, engine.Inputs(inputs), pipelines...)
	if err != nil {
		return nil, err
	}
	r.observeStage("engine", stage)
	report.Result = res
	if r.Metrics != nil {
		r.Metrics.ObserveResult(res)
	}
	if n := res.Defects.Len(); n > 0 {
		logger.Warn("Data defects found", "count", n, "by_kind", res.Defects.Counts())
	}

	tables := r.changedTables(ctx, logger, report, res.Tables)
	if len(tables) == 0 {
		logger.Info("Nothing to publish")
		return res.Tables, nil
	}

	stage = time.Now()
	delivered, err := r.publish(ctx, logger, tables)
	r.observeStage("publish", stage)
	report.Delivered = delivered
	return res.Tables, err
}

func (r *Runner) changedTables(ctx context.Context, logger *slog.Logger, report *Report, tables []*model.Table) []*model.Table {
	if !r.OnlyChanged || r.Store == nil {
		return tables
	}
	out := make([]*model.Table, 0, len(tables))
	for _, t := range tables {
		last, err := r.Store.LatestOutput(ctx, t.Name)
		switch {
		case err == nil && last.Digest == t.Digest():
			logger.Info("Table unchanged, skipping", "table", t.Name, "since_run", last.RunID)
			report.Unchanged = append(report.Unchanged, t.Name)
			continue
		case err != nil && !errors.Is(err, common.ErrNotFound):
			logger.Warn("Failed to read previous output", "table", t.Name, "error", err)
		}
		out = append(out, t)
	}
	return out
}

// publish writes tables to every sink. Sinks run concurrently, each one
// writing its tables in order; a failing sink does not stop the others.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, tables []*model.Table) ([]string, error) {
	errs := make([]error, len(r.Sinks))

	var g errgroup.Group
	for i, sink := range r.Sinks {
		g.Go(func() error {
			for _, t := range tables {
				if err := sink.WriteTable(ctx, t); err != nil {
					errs[i] = fmt.Errorf("sink %s: table %s: %w", sink.Name(), t.Name, err)
					logger.Error("Sink failed", "sink", sink.Name(), "table", t.Name, "error", err)
					if r.Metrics != nil {
						r.Metrics.SinkFailed(sink.Name())
					}
					return nil
				}
			}
			logger.Info("Sink delivered", "sink", sink.Name(), "tables", len(tables))
			return nil
		})
	}
	_ = g.Wait()

	var delivered []string
	for i, sink := range r.Sinks {
		if errs[i] == nil {
			delivered = append(delivered, sink.Name())
		}
	}
	return delivered, errors.Join(errs...)
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, report *Report, tables []*model.Table, runErr error) {
	run := &report.Run
	run.FinishedAt = time.Now()
	run.Status = model.RunSucceeded
	if runErr != nil {
		run.Status = model.RunFailed
		run.Error = runErr.Error()
	}
	if res := report.Result; res != nil {
		run.StreamRows = res.StreamRows
		run.DefectCount = res.Defects.Len()
	}
	if r.Metrics != nil {
		r.Metrics.RunFinished(run.Status, run.FinishedAt)
	}
	logger.Info("Run finished", "status", run.Status, "duration", run.Duration())

	if r.Store == nil {
		return
	}
	// The history must survive an interrupted run.
	ctx = context.WithoutCancel(ctx)
	if err := r.record(ctx, report, tables); err != nil {
		logger.Error("Failed to record run history", "error", err)
	}
}

func (r *Runner) record(ctx context.Context, report *Report, tables []*model.Table) error {
	if err := r.Store.SaveRun(ctx, &report.Run); err != nil {
		return err
	}
	if report.Result != nil {
		if err := r.Store.SaveDefects(ctx, report.Run.ID, report.Result.Defects); err != nil {
			return err
		}
	}
	for _, t := range tables {
		snap := model.OutputSnapshot{
			RunID:     report.Run.ID,
			Table:     t.Name,
			Digest:    t.Digest(),
			Rows:      t.Len(),
			CreatedAt: report.Run.FinishedAt,
		}
		if err := r.Store.SaveOutput(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) observeStage(stage string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.ObserveStage(stage, time.Since(start))
	}
}
