package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const runCatalogSchema = `
CREATE TABLE IF NOT EXISTS stage_runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT    NOT NULL,
	stage          TEXT    NOT NULL,
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME NOT NULL,
	input_rows     INTEGER NOT NULL,
	accepted_rows  INTEGER NOT NULL,
	exception_rows INTEGER NOT NULL,
	outcome        TEXT    NOT NULL,
	error          TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_stage_runs_run_id ON stage_runs (run_id);
`

// SQLiteRunStore keeps the run catalog in a SQLite database.
type SQLiteRunStore struct {
	db *sqlx.DB
}

// OpenSQLiteRunStore opens or creates the catalog database at path.
func OpenSQLiteRunStore(ctx context.Context, path string) (*SQLiteRunStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open run catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, runCatalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate run catalog: %w", err)
	}
	return &SQLiteRunStore{db: db}, nil
}

// RecordStage inserts one catalog row.
func (s *SQLiteRunStore) RecordStage(ctx context.Context, run StageRun) error {
	const q = `INSERT INTO stage_runs
		(run_id, stage, started_at, finished_at, input_rows, accepted_rows, exception_rows, outcome, error)
		VALUES (:run_id, :stage, :started_at, :finished_at, :input_rows, :accepted_rows, :exception_rows, :outcome, :error)`
	if _, err := s.db.NamedExecContext(ctx, q, run); err != nil {
		return fmt.Errorf("record stage %s: %w", run.Stage, err)
	}
	return nil
}

// Runs returns the stages recorded for runID in insertion order.
func (s *SQLiteRunStore) Runs(ctx context.Context, runID string) ([]StageRun, error) {
	var runs []StageRun
	const q = `SELECT run_id, stage, started_at, finished_at, input_rows, accepted_rows, exception_rows, outcome, error
		FROM stage_runs WHERE run_id = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &runs, q, runID); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return runs, nil
}

// Close releases the database handle.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}
