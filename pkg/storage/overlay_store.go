package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/polisai/bordereaux/pkg/table"
)

// OverlayStore reads through to a base store but keeps every write in
// memory. Dry runs use it to exercise the whole pipeline without touching
// existing outputs.
type OverlayStore struct {
	base  ArtifactStore
	upper *MemoryStore
}

// NewOverlayStore layers an in-memory store over base.
func NewOverlayStore(base ArtifactStore) *OverlayStore {
	return &OverlayStore{base: base, upper: NewMemoryStore()}
}

// Written exposes the artifacts captured by the overlay.
func (s *OverlayStore) Written() *MemoryStore { return s.upper }

// Exists implements ArtifactStore.
func (s *OverlayStore) Exists(ctx context.Context, p string) (bool, error) {
	if ok, _ := s.upper.Exists(ctx, p); ok {
		return true, nil
	}
	return s.base.Exists(ctx, p)
}

// Read implements ArtifactStore.
func (s *OverlayStore) Read(ctx context.Context, p string, opts table.ReadOptions) (*table.Table, error) {
	if ok, _ := s.upper.Exists(ctx, p); ok {
		return s.upper.Read(ctx, p, opts)
	}
	return s.base.Read(ctx, p, opts)
}

// Write implements ArtifactStore; the base store is never modified.
func (s *OverlayStore) Write(ctx context.Context, p string, t *table.Table) error {
	return s.upper.Write(ctx, p, t)
}

// List merges the listings of both layers.
func (s *OverlayStore) List(ctx context.Context, dir string) ([]string, error) {
	upper, _ := s.upper.List(ctx, dir)
	lower, err := s.base.List(ctx, dir)
	if err != nil && !(errors.Is(err, ErrNotFound) && len(upper) > 0) {
		return nil, err
	}
	seen := make(map[string]bool, len(upper)+len(lower))
	var out []string
	for _, p := range append(upper, lower...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}
