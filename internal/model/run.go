package model

import "time"

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	// RunSucceeded marks a run whose outputs were all delivered.
	RunSucceeded RunStatus = "succeeded"
	// RunFailed marks a run aborted by a fatal error.
	RunFailed RunStatus = "failed"
)

// Run is the history record of one CLI invocation.
type Run struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	StreamRows  map[StreamKind]int
	ID          string
	Pipelines   []string
	Status      RunStatus
	Error       string
	DefectCount int
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// OutputSnapshot is the persisted fingerprint of one output table.
type OutputSnapshot struct {
	CreatedAt time.Time
	RunID     string
	Table     string
	Digest    string
	Rows      int
}
