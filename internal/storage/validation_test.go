package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/packflow/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "run-1"},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: "   \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "param")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateRun(t *testing.T) {
	start := time.Date(2025, 7, 11, 8, 0, 0, 0, time.UTC)
	valid := func() *model.Run {
		return &model.Run{
			ID:         "run-1",
			StartedAt:  start,
			FinishedAt: start.Add(time.Minute),
			Status:     model.RunSucceeded,
			StreamRows: map[model.StreamKind]int{model.StreamDumping: 3},
		}
	}

	tests := []struct {
		mutate  func(*model.Run)
		name    string
		wantErr error
	}{
		{name: "valid run", mutate: func(*model.Run) {}},
		{name: "unfinished run", mutate: func(r *model.Run) { r.FinishedAt = time.Time{} }},
		{name: "missing ID", mutate: func(r *model.Run) { r.ID = "" }, wantErr: ErrInvalidRun},
		{name: "missing start", mutate: func(r *model.Run) { r.StartedAt = time.Time{} }, wantErr: ErrInvalidRun},
		{name: "bad status", mutate: func(r *model.Run) { r.Status = "running" }, wantErr: ErrInvalidRun},
		{name: "finished before start", mutate: func(r *model.Run) { r.FinishedAt = start.Add(-time.Second) }, wantErr: ErrInvalidRun},
		{name: "unknown stream", mutate: func(r *model.Run) { r.StreamRows["packing"] = 1 }, wantErr: ErrInvalidRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := valid()
			tt.mutate(run)
			err := validateRun(run)
			if tt.wantErr == nil && err != nil {
				t.Errorf("validateRun() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("validateRun() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := validateRun(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("validateRun(nil) error = %v, want ErrNilParameter", err)
	}
}

func TestValidateSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		snap    model.OutputSnapshot
		wantErr bool
	}{
		{name: "valid", snap: model.OutputSnapshot{RunID: "r", Table: "mass_balance", Digest: "abc"}},
		{name: "missing run", snap: model.OutputSnapshot{Table: "mass_balance", Digest: "abc"}, wantErr: true},
		{name: "missing table", snap: model.OutputSnapshot{RunID: "r", Digest: "abc"}, wantErr: true},
		{name: "missing digest", snap: model.OutputSnapshot{RunID: "r", Table: "t"}, wantErr: true},
		{name: "negative rows", snap: model.OutputSnapshot{RunID: "r", Table: "t", Digest: "d", Rows: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSnapshot(tt.snap)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
