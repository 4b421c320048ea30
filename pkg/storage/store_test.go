package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/bordereaux/pkg/table"
)

func sample() *table.Table {
	t := table.New("sample", "a", "b")
	t.Append(table.Row{"a": "1", "b": "x"})
	return t
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFSStore(t.TempDir())

	ok, err := store.Exists(ctx, "output_step2/out.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, "output_step2/out.csv", sample()))
	ok, err = store.Exists(ctx, "output_step2/out.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Read(ctx, "output_step2/out.csv", table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "out.csv", got.Name)
	assert.Equal(t, sample().Rows, got.Rows)

	_, err = store.Read(ctx, "output_step2/none.csv", table.ReadOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreListIsSortedAndSkipsDirectories(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	raw := filepath.Join(root, "data", "raw")
	require.NoError(t, os.MkdirAll(filepath.Join(raw, "nested"), 0o755))
	for _, name := range []string{"b.csv", "a.csv", "c.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(raw, name), []byte("h\n1\n"), 0o600))
	}

	files, err := NewFSStore(root).List(ctx, "data/raw")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/raw/a.csv", "data/raw/b.csv", "data/raw/c.xlsx"}, files)

	_, err = NewFSStore(root).List(ctx, "data/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCopiesTables(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	in := sample()
	require.NoError(t, store.Write(ctx, "./out/x.csv", in))
	in.Rows[0]["a"] = "mutated"

	got, err := store.Read(ctx, "out/x.csv", table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1", got.Rows[0]["a"])
	assert.Equal(t, "x.csv", got.Name)

	list, err := store.List(ctx, "out")
	require.NoError(t, err)
	assert.Equal(t, []string{"out/x.csv"}, list)
}

func TestOverlayStoreNeverWritesThrough(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	require.NoError(t, base.Write(ctx, "data/raw/a.csv", sample()))
	overlay := NewOverlayStore(base)

	require.NoError(t, overlay.Write(ctx, "output_step2/out.csv", sample()))
	ok, err := base.Exists(ctx, "output_step2/out.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = overlay.Exists(ctx, "output_step2/out.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = overlay.Read(ctx, "data/raw/a.csv", table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"output_step2/out.csv"}, overlay.Written().Paths())
}

func TestRunStores(t *testing.T) {
	ctx := context.Background()
	sqlite, err := OpenSQLiteRunStore(ctx, filepath.Join(t.TempDir(), "catalog", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	stores := map[string]RunStore{"memory": NewMemoryRunStore(), "sqlite": sqlite}
	started := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Runs(ctx, "run-1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.RecordStage(ctx, StageRun{
				RunID: "run-1", Stage: "STEP2", StartedAt: started, FinishedAt: started.Add(time.Second),
				InputRows: 3, AcceptedRows: 3, Outcome: "success",
			}))
			require.NoError(t, store.RecordStage(ctx, StageRun{
				RunID: "run-1", Stage: "STEP3", StartedAt: started, FinishedAt: started.Add(2 * time.Second),
				InputRows: 3, AcceptedRows: 2, ExceptionRows: 1, Outcome: "success",
			}))

			runs, err := store.Runs(ctx, "run-1")
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "STEP2", runs[0].Stage)
			assert.Equal(t, 1, runs[1].ExceptionRows)
			assert.True(t, started.Add(2*time.Second).Equal(runs[1].FinishedAt))
		})
	}
}
