package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunContext carries the values that would otherwise be read from ambient
// process state. Tests inject a fixed StartedAt to make runs reproducible.
type RunContext struct {
	ID        string
	StartedAt time.Time
	AsOfDate  time.Time
}

// NewRunContext creates a run context stamped at now. A zero asOf defaults to
// the UTC calendar date of now.
func NewRunContext(now time.Time, asOf time.Time) RunContext {
	now = now.UTC()
	if asOf.IsZero() {
		asOf = now
	}
	return RunContext{
		ID:        uuid.NewString(),
		StartedAt: now,
		AsOfDate:  time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC),
	}
}
