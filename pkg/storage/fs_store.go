package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/polisai/bordereaux/pkg/table"
)

// FSStore stores artifacts as CSV files below Root.
type FSStore struct {
	Root string
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

func (s *FSStore) abs(p string) string {
	return filepath.Join(s.Root, filepath.FromSlash(p))
}

// Exists reports whether a regular file exists at p.
func (s *FSStore) Exists(_ context.Context, p string) (bool, error) {
	info, err := os.Stat(s.abs(p))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Read parses the CSV at p. The table is named after the file.
func (s *FSStore) Read(_ context.Context, p string, opts table.ReadOptions) (*table.Table, error) {
	t, err := table.ReadFile(s.abs(p), opts)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return t, nil
}

// Write replaces the CSV at p, creating directories as needed.
func (s *FSStore) Write(_ context.Context, p string, t *table.Table) error {
	if err := table.WriteFile(s.abs(p), t); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// List returns the regular files directly under dir.
func (s *FSStore) List(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
