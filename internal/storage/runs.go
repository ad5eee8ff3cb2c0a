package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/model"
)

// SaveRun inserts or replaces a run together with its stream row counts.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var finished sql.NullTime
	if !run.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, pipelines, status, error, defect_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			pipelines = excluded.pipelines,
			status = excluded.status,
			error = excluded.error,
			defect_count = excluded.defect_count`,
		run.ID, run.StartedAt.UTC(), finished, strings.Join(run.Pipelines, ","),
		string(run.Status), run.Error, run.DefectCount)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_streams WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear stream counts: %w", err)
	}
	for kind, rows := range run.StreamRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_streams (run_id, stream, row_count) VALUES (?, ?, ?)`,
			run.ID, string(kind), rows); err != nil {
			return fmt.Errorf("failed to save stream count: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun returns the run with id, or common.ErrNotFound.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, pipelines, status, error, defect_count
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := s.loadStreamRows(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, started_at, finished_at, pipelines, status, error, defect_count
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if err := s.loadStreamRows(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var (
		run       model.Run
		finished  sql.NullTime
		pipelines string
		status    string
	)
	if err := sc.Scan(&run.ID, &run.StartedAt, &finished, &pipelines, &status, &run.Error, &run.DefectCount); err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	if pipelines != "" {
		run.Pipelines = strings.Split(pipelines, ",")
	}
	run.Status = model.RunStatus(status)
	return &run, nil
}

func (s *SQLiteStorage) loadStreamRows(ctx context.Context, run *model.Run) error {
	rows, err := s.db.QueryContext(ctx, `SELECT stream, row_count FROM run_streams WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load stream counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	run.StreamRows = make(map[model.StreamKind]int)
	for rows.Next() {
		var stream string
		var n int
		if err := rows.Scan(&stream, &n); err != nil {
			return fmt.Errorf("failed to scan stream count: %w", err)
		}
		run.StreamRows[model.StreamKind(stream)] = n
	}
	return rows.Err()
}

// SaveDefects replaces the defect report of a run.
func (s *SQLiteStorage) SaveDefects(ctx context.Context, runID string, report model.DefectReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_defects WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear defects: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_defects (run_id, stream, kind, row_number, field, value, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range report.Entries {
		if _, err := stmt.ExecContext(ctx, runID, string(d.Stream), string(d.Kind), d.Row, d.Field, d.Value, d.Message); err != nil {
			return fmt.Errorf("failed to save defect: %w", err)
		}
	}

	return tx.Commit()
}

// GetDefects returns the defect report of a run in insertion order.
func (s *SQLiteStorage) GetDefects(ctx context.Context, runID string) (model.DefectReport, error) {
	var report model.DefectReport
	if err := validateContext(ctx); err != nil {
		return report, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stream, kind, row_number, field, value, message
		FROM run_defects WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return report, fmt.Errorf("failed to get defects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d model.Defect
		var stream, kind string
		if err := rows.Scan(&stream, &kind, &d.Row, &d.Field, &d.Value, &d.Message); err != nil {
			return report, fmt.Errorf("failed to scan defect: %w", err)
		}
		d.Stream = model.StreamKind(stream)
		d.Kind = model.DefectKind(kind)
		report.Add(d)
	}
	return report, rows.Err()
}

// SaveOutput records the digest of an output table for a run.
func (s *SQLiteStorage) SaveOutput(ctx context.Context, snap model.OutputSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_outputs (run_id, table_name, digest, row_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, table_name) DO UPDATE SET
			digest = excluded.digest,
			row_count = excluded.row_count,
			created_at = excluded.created_at`,
		snap.RunID, snap.Table, snap.Digest, snap.Rows, snap.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	return nil
}

// GetOutputs returns the snapshots of a run ordered by table name.
func (s *SQLiteStorage) GetOutputs(ctx context.Context, runID string) ([]model.OutputSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, table_name, digest, row_count, created_at
		FROM run_outputs WHERE run_id = ? ORDER BY table_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outputs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.OutputSnapshot
	for rows.Next() {
		var snap model.OutputSnapshot
		if err := rows.Scan(&snap.RunID, &snap.Table, &snap.Digest, &snap.Rows, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LatestOutput returns the newest snapshot of table from a successful run,
// or common.ErrNotFound.
func (s *SQLiteStorage) LatestOutput(ctx context.Context, table string) (*model.OutputSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(table, "table"); err != nil {
		return nil, err
	}

	var snap model.OutputSnapshot
	err := s.db.QueryRowContext(ctx, `
		SELECT o.run_id, o.table_name, o.digest, o.row_count, o.created_at
		FROM run_outputs o JOIN runs r ON r.id = o.run_id
		WHERE o.table_name = ? AND r.status = ?
		ORDER BY o.created_at DESC, r.started_at DESC
		LIMIT 1`, table, string(model.RunSucceeded)).
		Scan(&snap.RunID, &snap.Table, &snap.Digest, &snap.Rows, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("output %s: %w", table, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest output: %w", err)
	}
	return &snap, nil
}
