// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

const busyTimeout = 5 * time.Second

// openDB opens path with WAL and busy_timeout applied to every pooled connection.
func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// One writer; the history is tiny.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return db, nil
}

// migrations are applied in order; PRAGMA user_version records the count.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS capture_runs (
		run_id TEXT PRIMARY KEY,
		session_id INTEGER NOT NULL DEFAULT 0,
		exercise_id INTEGER NOT NULL DEFAULT 0,
		plan_exercise_id INTEGER NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('INITIALIZING', 'RUNNING', 'COMPLETED', 'ERROR')),
		rep_count INTEGER NOT NULL DEFAULT 0,
		frames_sent INTEGER NOT NULL DEFAULT 0,
		frames_failed INTEGER NOT NULL DEFAULT 0,
		stale_dropped INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_capture_runs_started ON capture_runs(started_at);`,
	`ALTER TABLE capture_runs ADD COLUMN frames_skipped INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE capture_runs ADD COLUMN accuracy REAL NOT NULL DEFAULT 0;`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("history: read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("history: schema version %d is newer than supported %d", version, len(migrations))
	}
	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("history: migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("history: set schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("history: commit migration %d: %w", i+1, err)
		}
	}
	return nil
}

// VerifyIntegrity runs PRAGMA quick_check (or integrity_check when full)
// on a read-only handle. It returns the diagnostic rows, nil when healthy.
func VerifyIntegrity(path string, full bool) ([]string, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path))
	if err != nil {
		return nil, fmt.Errorf("history: open for verification: %w", err)
	}
	defer func() { _ = db.Close() }()

	pragma := "PRAGMA quick_check"
	if full {
		pragma = "PRAGMA integrity_check"
	}
	rows, err := db.Query(pragma)
	if err != nil {
		return nil, fmt.Errorf("history: %s: %w", strings.ToLower(pragma), err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}
