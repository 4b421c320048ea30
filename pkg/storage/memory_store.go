package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/polisai/bordereaux/pkg/table"
)

// MemoryStore is an in-memory implementation of ArtifactStore. Tables are
// copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*table.Table)}
}

func clean(p string) string {
	return path.Clean(strings.TrimPrefix(p, "./"))
}

// Exists reports whether p has been written.
func (s *MemoryStore) Exists(_ context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[clean(p)]
	return ok, nil
}

// Read returns a copy of the table at p.
func (s *MemoryStore) Read(_ context.Context, p string, _ table.ReadOptions) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[clean(p)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return t.Clone(), nil
}

// Write stores a copy of t at p, named after the file as FSStore would.
func (s *MemoryStore) Write(_ context.Context, p string, t *table.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := t.Clone()
	c.Name = path.Base(p)
	s.tables[clean(p)] = c
	return nil
}

// List returns the stored paths directly under dir.
func (s *MemoryStore) List(_ context.Context, dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dir = clean(dir)
	var out []string
	for p := range s.tables {
		if path.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Paths returns every stored path, sorted.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for p := range s.tables {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
