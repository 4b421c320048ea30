package engine

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/polisai/bordereaux/pkg/config"
	"github.com/polisai/bordereaux/pkg/logging"
	"github.com/polisai/bordereaux/pkg/storage"
	"github.com/polisai/bordereaux/pkg/table"
)

// benchStore builds a raw drop of n records spread over 50 ZIP codes, all of
// which resolve to an eligible tract.
func benchStore(b *testing.B, n int) *storage.MemoryStore {
	b.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	raw := table.New("bench_carrier.csv", "Eff Date", "Exp Date", "Mailing Address", "Product", "Gross Premium", "Net Premium", "Commission", "Bond Amount")
	cw := table.New("crosswalk", "ZIP", "TRACT", "STATE", "COUNTY", "RES_RATIO")
	cejst := table.New("cejst", "GEOID10", "Identified as disadvantaged")
	for z := 0; z < 50; z++ {
		zip := fmt.Sprintf("%05d", 10000+z)
		tract := fmt.Sprintf("36061%06d", z)
		cw.Rows = append(cw.Rows, table.Row{"ZIP": zip, "TRACT": tract, "STATE": "36", "COUNTY": "061", "RES_RATIO": "1"})
		cejst.Rows = append(cejst.Rows, table.Row{"GEOID10": tract, "Identified as disadvantaged": strconv.FormatBool(z%2 == 0)})
	}
	for i := 0; i < n; i++ {
		raw.Rows = append(raw.Rows, table.Row{
			"Eff Date":        "2024-01-01",
			"Exp Date":        "2025-01-01",
			"Mailing Address": fmt.Sprintf("%d Broadway, New York, NY %05d", i, 10000+i%50),
			"Product":         "Contract Bond",
			"Gross Premium":   "1,250.00",
			"Net Premium":     "1,000.00",
			"Commission":      "250.00",
			"Bond Amount":     "400000",
		})
	}

	for p, t := range map[string]*table.Table{
		"data/raw/bench_carrier.csv":                    raw,
		"config/hud_zip_tract_crosswalk.csv":            cw,
		"config/external_data/cejst_v2_communities.csv": cejst,
	} {
		if err := store.Write(ctx, p, t); err != nil {
			b.Fatalf("seed %s: %v", p, err)
		}
	}
	return store
}

// BenchmarkRunAll measures a full in-memory chain.
func BenchmarkRunAll(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			store := benchStore(b, n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				r, err := NewRunner(config.Default(), Options{
					Store:  store,
					Run:    testRun,
					DryRun: true,
					Logger: logging.Discard(),
				})
				if err != nil {
					b.Fatalf("new runner: %v", err)
				}
				if _, err := r.RunAll(context.Background()); err != nil {
					b.Fatalf("run: %v", err)
				}
			}
		})
	}
}
