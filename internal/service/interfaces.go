// Package service defines the interfaces shared by sources, sinks and the
// run history store.
package service

import (
	"context"

	"github.com/Veraticus/packflow/internal/model"
)

// Source yields the raw table of one input stream.
type Source interface {
	Fetch(ctx context.Context, kind model.StreamKind) (model.RawTable, error)
}

// Sink receives finished output tables. Writing a table replaces whatever
// the sink held for that table name.
type Sink interface {
	Name() string
	WriteTable(ctx context.Context, t *model.Table) error
}

// RunStore is the contract of the local run history.
type RunStore interface {
	// Run operations
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Defect operations
	SaveDefects(ctx context.Context, runID string, report model.DefectReport) error
	GetDefects(ctx context.Context, runID string) (model.DefectReport, error)

	// Output snapshots
	SaveOutput(ctx context.Context, snapshot model.OutputSnapshot) error
	GetOutputs(ctx context.Context, runID string) ([]model.OutputSnapshot, error)
	LatestOutput(ctx context.Context, table string) (*model.OutputSnapshot, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
