// Package engine reconciles packing-line streams into the time-trace,
// mass-balance and production reports.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/packflow/internal/aggregate"
	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/normalize"
	"github.com/Veraticus/packflow/internal/reconcile"
	"github.com/Veraticus/packflow/internal/taxonomy"
	"github.com/Veraticus/packflow/internal/yield"
)

// Pipeline names one report the engine can produce.
type Pipeline string

const (
	// PipelineTimeTrace follows pallets from reception to dumping.
	PipelineTimeTrace Pipeline = "time-trace"
	// PipelineMassBalance reconciles processed kilograms with discard and boxes.
	PipelineMassBalance Pipeline = "mass-balance"
	// PipelineProduction rolls up the production report.
	PipelineProduction Pipeline = "production"
)

// AllPipelines returns every pipeline in execution order.
func AllPipelines() []Pipeline {
	return []Pipeline{PipelineTimeTrace, PipelineMassBalance, PipelineProduction}
}

// ParsePipeline converts a pipeline name.
func ParsePipeline(s string) (Pipeline, error) {
	p := Pipeline(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPipelines() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown pipeline %q", common.ErrInvalidConfig, s)
}

// Streams returns the input streams a pipeline reads.
func (p Pipeline) Streams() []model.StreamKind {
	switch p {
	case PipelineTimeTrace:
		return []model.StreamKind{model.StreamReception, model.StreamCooling, model.StreamDumping}
	case PipelineMassBalance:
		return []model.StreamKind{model.StreamDumping, model.StreamDiscard, model.StreamFinishedProduct}
	case PipelineProduction:
		return []model.StreamKind{model.StreamProductionReport}
	default:
		return nil
	}
}

// StreamsFor returns the distinct streams needed by pipelines, in stream order.
func StreamsFor(pipelines []Pipeline) []model.StreamKind {
	need := make(map[model.StreamKind]bool)
	for _, p := range pipelines {
		for _, k := range p.Streams() {
			need[k] = true
		}
	}
	var out []model.StreamKind
	for _, k := range model.AllStreamKinds() {
		if need[k] {
			out = append(out, k)
		}
	}
	return out
}

// Inputs holds one raw table per stream.
type Inputs map[model.StreamKind]model.RawTable

// Config holds everything a run depends on.
type Config struct {
	Taxonomy *taxonomy.Taxonomy
	Logger   *slog.Logger
	// CompanyAliases rewrites company labels before joining.
	CompanyAliases map[string]string
	// ReportingStart drops events dated before it. Zero keeps everything.
	ReportingStart     time.Time
	ShrinkageThreshold float64
}

// DefaultConfig returns a configuration with the default shrinkage
// threshold and an empty taxonomy.
func DefaultConfig() Config {
	tax, _ := taxonomy.New(taxonomy.File{})
	return Config{
		Taxonomy:           tax,
		ShrinkageThreshold: yield.DefaultShrinkageThreshold,
	}
}

// Engine runs the reconciliation pipelines. It holds no mutable state and
// may be reused across runs.
type Engine struct {
	taxonomy   *taxonomy.Taxonomy
	logger     *slog.Logger
	aliases    map[string]string
	start      time.Time
	calculator yield.Calculator
}

// New validates cfg and creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Taxonomy == nil {
		return nil, fmt.Errorf("%w: taxonomy is required", common.ErrMissingConfig)
	}
	calc, err := yield.NewCalculator(cfg.ShrinkageThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	aliases := make(map[string]string, len(cfg.CompanyAliases))
	for from, to := range cfg.CompanyAliases {
		aliases[aliasKey(from)] = strings.TrimSpace(to)
	}

	start := cfg.ReportingStart
	if !start.IsZero() {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	}

	return &Engine{
		taxonomy:   cfg.Taxonomy,
		logger:     logger,
		aliases:    aliases,
		start:      start,
		calculator: calc,
	}, nil
}

// Result is the output of Run.
type Result struct {
	StreamRows  map[model.StreamKind]int
	Tables      []*model.Table
	TimeTrace   []model.TimeTrace
	MassBalance []model.WideRecord
	Production  []model.ProductionSummary
	Defects     model.DefectReport
}

// Table returns the output table with the given name.
func (r *Result) Table(name string) (*model.Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Totals sums the mass balance over every record. Percentages are
// recomputed from the summed kilograms.
func (r *Result) Totals() model.MassBalance {
	var t model.MassBalance
	for _, rec := range r.MassBalance {
		t.KgProcessed += rec.Balance.KgProcessed
		t.KgDiscard += rec.Balance.KgDiscard
		t.KgExportable += rec.Balance.KgExportable
		t.KgOverweight += rec.Balance.KgOverweight
		t.KgShrinkage += rec.Balance.KgShrinkage
		t.KgOverweightNet += rec.Balance.KgOverweightNet
		t.TotalBoxes += rec.Balance.TotalBoxes
	}
	t.PctDiscard = model.NewRatio(t.KgDiscard, t.KgProcessed)
	t.PctOverweight = model.NewRatio(t.KgOverweight, t.KgProcessed)
	t.PctShrinkage = model.NewRatio(t.KgShrinkage, t.KgProcessed)
	t.PctYield = model.NewRatio(t.KgExportable, t.KgProcessed)
	t.PctExportable = t.PctYield
	return t
}

// Run executes pipelines (all of them when none are given) over in.
// Every stream a pipeline needs must be present in in; an empty table is
// fine.
func (e *Engine) Run(ctx context.Context, in Inputs, pipelines ...Pipeline) (*Result, error) {
	if len(pipelines) == 0 {
		pipelines = AllPipelines()
	}
	for _, k := range StreamsFor(pipelines) {
		if _, ok := in[k]; !ok {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingStream, k)
		}
	}

	s := newSession(e, in)
	result := &Result{StreamRows: make(map[model.StreamKind]int)}

	for _, p := range pipelines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			table *model.Table
			err   error
		)
		switch p {
		case PipelineTimeTrace:
			var traces []model.TimeTrace
			traces, table, err = s.timeTrace()
			result.TimeTrace = traces
		case PipelineMassBalance:
			var records []model.WideRecord
			records, table, err = s.massBalance()
			result.MassBalance = records
		case PipelineProduction:
			var summary []model.ProductionSummary
			summary, table, err = s.production()
			result.Production = summary
		default:
			err = fmt.Errorf("%w: unknown pipeline %q", common.ErrInvalidConfig, p)
		}
		if err != nil {
			return nil, fmt.Errorf("%s pipeline: %w", p, err)
		}

		e.logger.Info("Pipeline complete", "pipeline", p, "rows", table.Len())
		result.Tables = append(result.Tables, table)
	}

	for k, n := range s.rowCounts {
		result.StreamRows[k] = n
	}
	result.Defects = s.defects
	return result, nil
}

// TimeTrace runs only the time-trace pipeline.
func (e *Engine) TimeTrace(ctx context.Context, in Inputs) (*Result, error) {
	return e.Run(ctx, in, PipelineTimeTrace)
}

// MassBalance runs only the mass-balance pipeline.
func (e *Engine) MassBalance(ctx context.Context, in Inputs) (*Result, error) {
	return e.Run(ctx, in, PipelineMassBalance)
}

// ProductionSummary runs only the production pipeline.
func (e *Engine) ProductionSummary(ctx context.Context, in Inputs) (*Result, error) {
	return e.Run(ctx, in, PipelineProduction)
}

// session holds the per-run state: prepared streams are cached so a stream
// shared by two pipelines is normalized once.
type session struct {
	engine    *Engine
	inputs    Inputs
	prepared  map[model.StreamKind][]model.Row
	rowCounts map[model.StreamKind]int
	defects   model.DefectReport
}

func newSession(e *Engine, in Inputs) *session {
	return &session{
		engine:    e,
		inputs:    in,
		prepared:  make(map[model.StreamKind][]model.Row),
		rowCounts: make(map[model.StreamKind]int),
	}
}

// rows normalizes a stream, applies the stream-specific corrections and the
// reporting window, and returns the surviving rows.
func (s *session) rows(kind model.StreamKind) ([]model.Row, error) {
	if rows, ok := s.prepared[kind]; ok {
		return rows, nil
	}

	spec, ok := SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownStream, kind)
	}

	raw := s.inputs[kind]
	raw.Kind = kind
	res, err := normalize.Normalize(raw, spec.Fields)
	if err != nil {
		return nil, err
	}
	s.defects.Merge(res.Defects)

	for _, r := range res.Rows {
		s.correct(kind, r)
	}
	rows := reconcile.FilterSince(res.Rows, spec.DateField, s.engine.start)

	s.engine.logger.Debug("Stream prepared",
		"stream", kind,
		"records", raw.Len(),
		"normalized", len(res.Rows),
		"in_window", len(rows),
		"defects", res.Defects.Len())

	s.prepared[kind] = rows
	s.rowCounts[kind] = len(rows)
	return rows, nil
}

func (s *session) correct(kind model.StreamKind, r model.Row) {
	if kind == model.StreamReception {
		if h, ok := r[model.FieldReceptionHour].(string); ok {
			r[model.FieldReceptionHour] = normalize.CorrectAfternoon(h)
		}
	}
	if c, ok := r[model.FieldCompany].(model.Category); ok && !c.IsUnspecified() {
		if to, found := s.engine.aliases[aliasKey(c.Raw())]; found {
			r[model.FieldCompany] = model.NewCategory(to)
		}
	}
}

func (s *session) aggregate(rows []model.Row, spec aggregate.Spec) []model.Row {
	res := aggregate.Aggregate(rows, spec)
	s.defects.Merge(res.Defects)
	return res.Rows
}

func (s *session) orphans(stream model.StreamKind, rows []model.Row, fields []string, message string) {
	for _, r := range rows {
		s.defects.Add(model.Defect{
			Stream:  stream,
			Kind:    model.DefectOrphan,
			Value:   model.DisplayKey(r.Key(fields)),
			Message: message,
		})
	}
	if len(rows) > 0 {
		s.engine.logger.Warn("Unmatched rows", "stream", stream, "count", len(rows), "reason", message)
	}
}

func aliasKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
