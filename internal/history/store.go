// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history keeps a local log of finished capture runs. The backend
// remains the source of truth; this is for the CLI and console only.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/physio/internal/capture"
)

// Run is one stored capture run.
type Run struct {
	RunID          string        `json:"run_id"`
	SessionID      int64         `json:"session_id"`
	ExerciseID     int64         `json:"exercise_id"`
	PlanExerciseID int64         `json:"plan_exercise_id"`
	Status         capture.State `json:"status"`
	RepCount       int           `json:"rep_count"`
	Accuracy       float64       `json:"accuracy"`
	FramesSent     int64         `json:"frames_sent"`
	FramesFailed   int64         `json:"frames_failed"`
	FramesSkipped  int64         `json:"frames_skipped"`
	StaleDropped   int64         `json:"stale_dropped"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at"`
	Error          string        `json:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the database directory and file if needed and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Record stores a finished run. It satisfies capture.Journal.
func (s *Store) Record(ctx context.Context, sum capture.Summary) error {
	return s.Put(ctx, FromSummary(sum))
}

// FromSummary flattens a capture summary.
func FromSummary(sum capture.Summary) Run {
	return Run{
		RunID:          sum.Session.RunID,
		SessionID:      sum.Session.SessionID,
		ExerciseID:     sum.Session.ExerciseID,
		PlanExerciseID: sum.Session.PlanExerciseID,
		Status:         sum.Session.Status,
		RepCount:       sum.Session.RepCount,
		Accuracy:       sum.Result.Accuracy,
		FramesSent:     sum.Stats.Sent,
		FramesFailed:   sum.Stats.Failed,
		FramesSkipped:  sum.Stats.Skipped,
		StaleDropped:   sum.Stats.StaleDropped,
		StartedAt:      sum.StartedAt,
		EndedAt:        sum.EndedAt,
		Error:          sum.Error,
	}
}

// Put inserts or replaces a run.
func (s *Store) Put(ctx context.Context, r Run) error {
	const query = `
	INSERT INTO capture_runs (
		run_id, session_id, exercise_id, plan_exercise_id, status, rep_count, accuracy,
		frames_sent, frames_failed, frames_skipped, stale_dropped, started_at, ended_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		session_id = excluded.session_id,
		exercise_id = excluded.exercise_id,
		status = excluded.status,
		rep_count = excluded.rep_count,
		accuracy = excluded.accuracy,
		frames_sent = excluded.frames_sent,
		frames_failed = excluded.frames_failed,
		frames_skipped = excluded.frames_skipped,
		stale_dropped = excluded.stale_dropped,
		ended_at = excluded.ended_at,
		error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		r.RunID, r.SessionID, r.ExerciseID, r.PlanExerciseID, string(r.Status), r.RepCount, r.Accuracy,
		r.FramesSent, r.FramesFailed, r.FramesSkipped, r.StaleDropped,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.EndedAt.UTC().Format(time.RFC3339Nano), r.Error,
	)
	if err != nil {
		return fmt.Errorf("history: put run %s: %w", r.RunID, err)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
	SELECT run_id, session_id, exercise_id, plan_exercise_id, status, rep_count, accuracy,
		frames_sent, frames_failed, frames_skipped, stale_dropped, started_at, ended_at, error
	FROM capture_runs
	ORDER BY started_at DESC, run_id
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r              Run
			status         string
			started, ended string
		)
		if err := rows.Scan(&r.RunID, &r.SessionID, &r.ExerciseID, &r.PlanExerciseID, &status, &r.RepCount, &r.Accuracy,
			&r.FramesSent, &r.FramesFailed, &r.FramesSkipped, &r.StaleDropped, &started, &ended, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Status = capture.State(status)
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("history: run %s started_at: %w", r.RunID, err)
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("history: run %s ended_at: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats aggregates all runs.
type Stats struct {
	Runs      int `json:"runs"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	TotalReps int `json:"total_reps"`
}

// Totals returns aggregate counters over every run.
func (s *Store) Totals(ctx context.Context) (Stats, error) {
	const query = `
	SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'ERROR' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(rep_count), 0)
	FROM capture_runs
	`
	var st Stats
	if err := s.db.QueryRowContext(ctx, query).Scan(&st.Runs, &st.Completed, &st.Failed, &st.TotalReps); err != nil {
		return Stats{}, fmt.Errorf("history: totals: %w", err)
	}
	return st, nil
}
