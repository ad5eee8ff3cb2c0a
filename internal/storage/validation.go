// Package storage provides the local run history of packflow.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/packflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidRun      = errors.New("invalid run")
	ErrInvalidSnapshot = errors.New("invalid output snapshot")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	switch run.Status {
	case model.RunSucceeded, model.RunFailed:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidRun, run.Status)
	}
	if !run.FinishedAt.IsZero() && run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}
	for kind := range run.StreamRows {
		if !kind.IsValid() {
			return fmt.Errorf("%w: unknown stream %q", ErrInvalidRun, kind)
		}
	}
	return nil
}

func validateSnapshot(snap model.OutputSnapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("%w: missing run ID", ErrInvalidSnapshot)
	}
	if snap.Table == "" {
		return fmt.Errorf("%w: missing table", ErrInvalidSnapshot)
	}
	if snap.Digest == "" {
		return fmt.Errorf("%w: missing digest", ErrInvalidSnapshot)
	}
	if snap.Rows < 0 {
		return fmt.Errorf("%w: negative row count", ErrInvalidSnapshot)
	}
	return nil
}
