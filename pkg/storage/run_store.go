package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRunStore is an in-memory implementation of RunStore.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string][]StageRun
}

// NewMemoryRunStore creates a new MemoryRunStore.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string][]StageRun)}
}

// RecordStage appends run to the catalog.
func (s *MemoryRunStore) RecordStage(_ context.Context, run StageRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = append(s.runs[run.RunID], run)
	return nil
}

// Runs returns the stages recorded for runID.
func (s *MemoryRunStore) Runs(_ context.Context, runID string) ([]StageRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return append([]StageRun(nil), runs...), nil
}

// Close is a no-op for memory store.
func (s *MemoryRunStore) Close() error {
	return nil
}
