package accumulation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

func newStage() *Stage {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

type rec struct {
	id, zip, valid, carrier, gross, penal string
}

func classified(recs ...rec) *table.Table {
	t := table.New(schema.LIDACClassified.Name, schema.LIDACClassified.Columns()...)
	for _, r := range recs {
		t.Append(table.Row{
			schema.ProjectID:    r.id,
			schema.ZipCode:      r.zip,
			schema.ZipValidFlag: r.valid,
			schema.CarrierID:    r.carrier,
			schema.GrossPremium: r.gross,
			schema.PenalAmount:  r.penal,
		})
	}
	return t
}

func TestClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds
	cases := []struct {
		projects int
		penal    int64
		want     domain.Tier
	}{
		{4, 0, domain.TierRed},
		{1, 5_000_000, domain.TierRed},
		{3, 4_999_999, domain.TierYellow},
		{2, 0, domain.TierYellow},
		{1, 2_000_000, domain.TierYellow},
		{1, 1_999_999, domain.TierGreen},
		{0, 0, domain.TierGreen},
	}
	for _, tc := range cases {
		got := th.Classify(tc.projects, decimal.NewFromInt(tc.penal))
		assert.Equal(t, tc.want, got, "projects=%d penal=%d", tc.projects, tc.penal)
	}
}

func TestClassifyIsMonotonic(t *testing.T) {
	rank := map[domain.Tier]int{domain.TierGreen: 0, domain.TierYellow: 1, domain.TierRed: 2}
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(t, "projects")
		p := rapid.Int64Range(0, 10_000_000).Draw(t, "penal")
		dn := rapid.IntRange(0, 5).Draw(t, "more_projects")
		dp := rapid.Int64Range(0, 5_000_000).Draw(t, "more_penal")

		lo := DefaultThresholds.Classify(n, decimal.NewFromInt(p))
		hi := DefaultThresholds.Classify(n+dn, decimal.NewFromInt(p+dp))
		if rank[hi] < rank[lo] {
			t.Fatalf("tier dropped from %s to %s", lo, hi)
		}
	})
}

func TestExecuteAggregatesPerZIP(t *testing.T) {
	in := runtime.Input{Tables: []*table.Table{classified(
		rec{"A1", "17815", "true", "Alpha", "1000", "1,000,000"},
		rec{"A2", "17815", "True", "Beta", "$500.50", ""},
		rec{"A3", "02134", "1", "Alpha", "oops", "5000000"},
		rec{"A4", "", "false", "Alpha", "10", "10"},
		rec{"A5", "17815", "false", "Beta", "10", "10"},
	)}}

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 2, res.Accepted.Len())
	first := res.Accepted.Rows[0]
	assert.Equal(t, "02134", first[schema.ZipCode], "buckets are ordered by zip")
	assert.Equal(t, "1", first[schema.ProjectCount])
	assert.Equal(t, "0.00", first[schema.TotalGrossPremium])
	assert.Equal(t, string(domain.TierRed), first[schema.AccumulationFlag])

	second := res.Accepted.Rows[1]
	assert.Equal(t, "2", second[schema.ProjectCount])
	assert.Equal(t, "2", second[schema.CarriersInvolved])
	assert.Equal(t, "1500.50", second[schema.TotalGrossPremium])
	assert.Equal(t, "1000000.00", second[schema.TotalPenalAmount])
	assert.Equal(t, string(domain.TierYellow), second[schema.AccumulationFlag])
	assert.Equal(t, Note(domain.TierYellow), second[schema.AccumulationNote])

	require.Equal(t, 2, res.Exceptions.Len())
	assert.Equal(t, ReasonZIPInvalid, res.Exceptions.Rows[0][schema.AccumulationErrorReason])
	assert.ElementsMatch(t, []string{"A1", "A2", "A3"}, res.AcceptedKeys)
	require.NoError(t, runtime.CheckPartition(domain.StageAccumulation, 5, res, schema.ProjectID))
}

func TestExecuteFallsBackToFormatCheckWithoutFlag(t *testing.T) {
	src := table.New("lidac", schema.ProjectID, schema.ZipCode, schema.CarrierID, schema.GrossPremium, schema.PenalAmount)
	src.Append(table.Row{schema.ProjectID: "A", schema.ZipCode: "17815", schema.CarrierID: "c"})
	src.Append(table.Row{schema.ProjectID: "B", schema.ZipCode: "1781", schema.CarrierID: "c"})

	res, err := newStage().Execute(context.Background(), runtime.Input{Tables: []*table.Table{src}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.AcceptedKeys)
	assert.Equal(t, 1, res.Exceptions.Len())
	assert.Equal(t, string(domain.TierGreen), res.Accepted.Rows[0][schema.AccumulationFlag])
}

func TestExecuteRequiresColumns(t *testing.T) {
	src := table.New("lidac", schema.ZipCode)
	_, err := newStage().Execute(context.Background(), runtime.Input{Tables: []*table.Table{src}})
	assert.ErrorIs(t, err, domain.ErrColumnMissing)
}

func TestExecuteWithCustomThresholds(t *testing.T) {
	th := Thresholds{RedCount: 2, RedPenal: decimal.NewFromInt(100), YellowCount: 1, YellowPenal: decimal.NewFromInt(50)}
	stage := New(Config{Thresholds: &th, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	res, err := stage.Execute(context.Background(), runtime.Input{Tables: []*table.Table{classified(
		rec{"A", "17815", "true", "c", "1", "1"},
		rec{"B", "17815", "true", "c", "1", "1"},
	)}})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TierRed), res.Accepted.Rows[0][schema.AccumulationFlag])
	assert.Equal(t, "1", res.Accepted.Rows[0][schema.CarriersInvolved])
}

func TestAccumulationPartitionIsTotalAndDisjoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 25).Draw(t, "rows")
		var recs []rec
		for i := 0; i < n; i++ {
			recs = append(recs, rec{
				id:      "P" + string(rune('A'+i)),
				zip:     rapid.SampledFrom([]string{"17815", "02134", "", "123"}).Draw(t, "zip"),
				valid:   rapid.SampledFrom([]string{"true", "false", ""}).Draw(t, "valid"),
				carrier: rapid.SampledFrom([]string{"Alpha", "Beta"}).Draw(t, "carrier"),
				gross:   rapid.StringMatching(`[0-9]{0,6}`).Draw(t, "gross"),
				penal:   rapid.StringMatching(`[0-9]{0,7}`).Draw(t, "penal"),
			})
		}

		res, err := newStage().Execute(context.Background(), runtime.Input{Tables: []*table.Table{classified(recs...)}})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if err := runtime.CheckPartition(domain.StageAccumulation, n, res, schema.ProjectID); err != nil {
			t.Fatalf("partition: %v", err)
		}
		total := 0
		for _, r := range res.Accepted.Rows {
			c, _ := decimal.NewFromString(r[schema.ProjectCount])
			total += int(c.IntPart())
		}
		if total != len(res.AcceptedKeys) {
			t.Fatalf("bucket counts %d != aggregated rows %d", total, len(res.AcceptedKeys))
		}
	})
}
