// Package storage persists pipeline artifacts and the run catalog.
//
// Artifacts are tables addressed by slash-separated paths relative to a
// working root, so the same pipeline can run against the filesystem, an
// in-memory store in tests, or an overlay that never writes to disk.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/polisai/bordereaux/pkg/table"
)

// ErrNotFound is returned when a requested artifact or run does not exist.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore reads and writes tabular artifacts.
type ArtifactStore interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string, opts table.ReadOptions) (*table.Table, error)
	Write(ctx context.Context, path string, t *table.Table) error
	// List returns the files directly under dir, sorted by name.
	List(ctx context.Context, dir string) ([]string, error)
}

// StageRun is one row of the run catalog.
type StageRun struct {
	RunID         string    `db:"run_id"`
	Stage         string    `db:"stage"`
	StartedAt     time.Time `db:"started_at"`
	FinishedAt    time.Time `db:"finished_at"`
	InputRows     int       `db:"input_rows"`
	AcceptedRows  int       `db:"accepted_rows"`
	ExceptionRows int       `db:"exception_rows"`
	Outcome       string    `db:"outcome"`
	Error         string    `db:"error"`
}

// RunStore records stage executions.
type RunStore interface {
	RecordStage(ctx context.Context, run StageRun) error
	// Runs returns the recorded stages of runID in recording order.
	Runs(ctx context.Context, runID string) ([]StageRun, error)
	Close() error
}
