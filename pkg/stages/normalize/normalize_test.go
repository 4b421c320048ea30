package normalize

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/polisai/bordereaux/pkg/domain"
	"github.com/polisai/bordereaux/pkg/engine/runtime"
	"github.com/polisai/bordereaux/pkg/schema"
	"github.com/polisai/bordereaux/pkg/table"
)

var fixedRun = domain.RunContext{
	ID:        "run-1",
	StartedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	AsOfDate:  time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
}

func newStage() *Stage {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func alphaSource() *table.Table {
	src := table.New("CarrierAlpha_Phase1_Bordereaux.csv",
		" gross  PREMIUM", "Net Premium", "Effective Date", "Expiration Date",
		"Principal / Account Mailing Address", "Internal Memo")
	src.Append(table.Row{
		" gross  PREMIUM":                     "$1,000.00",
		"Net Premium":                         "800",
		"Effective Date":                      "01/15/2024",
		"Expiration Date":                     "2025-01-15",
		"Principal / Account Mailing Address": " 123 Main St, PA 17815 ",
		"Internal Memo":                       "drop me",
	})
	src.Append(table.Row{
		" gross  PREMIUM": "n/a",
		"Net Premium":     "",
		"Effective Date":  "2024-03-01",
		"Expiration Date": "2024-02-01",
	})
	return src
}

func betaSource() *table.Table {
	src := table.New("CarrierBeta_Q1.csv", "Gross Premium", "Penal Amount")
	src.Append(table.Row{"Gross Premium": "250", "Penal Amount": "2,000,000"})
	return src
}

func TestExecuteMapsAliasesAndLineage(t *testing.T) {
	res, err := newStage().Execute(context.Background(), runtime.Input{
		Tables: []*table.Table{alphaSource(), betaSource()},
		Run:    fixedRun,
	})
	require.NoError(t, err)

	require.Equal(t, 3, res.Accepted.Len())
	assert.Equal(t, 0, res.Exceptions.Len())
	assert.Equal(t, schema.SilverProject.Columns(), res.Accepted.Columns)

	first := res.Accepted.Rows[0]
	assert.Equal(t, "CarrierAlpha_000001", first[schema.ProjectID])
	assert.Equal(t, "CarrierAlpha", first[schema.CarrierID])
	assert.Equal(t, "CarrierAlpha_Phase1_Bordereaux.csv", first[schema.SourceFile])
	assert.Equal(t, "2", first[schema.SourceRowNumber])
	assert.Equal(t, "2024-06-01T12:30:00Z", first[schema.IngestionTimestamp])
	assert.Equal(t, "2024-05-31", first[schema.AsOfDate])
	assert.Equal(t, "1000", first[schema.GrossPremium])
	assert.Equal(t, "800", first[schema.NetPremium])
	assert.Equal(t, "2024-01-15", first[schema.EffectiveDate])
	assert.Equal(t, "123 Main St, PA 17815", first[schema.PrincipalAddress])
	assert.Equal(t, table.Missing, first[schema.CommissionAmount])
	assert.Equal(t, table.Missing, first[schema.QualityFlags])
	assert.False(t, res.Accepted.Has("Internal Memo"))

	second := res.Accepted.Rows[1]
	assert.Equal(t, table.Missing, second[schema.GrossPremium], "unparsable premium must stay missing")
	assert.Equal(t, table.Missing, second[schema.NetPremium])
	assert.Equal(t, FlagExpirationNotAfterEffective, second[schema.QualityFlags])
	assert.Equal(t, "3", second[schema.SourceRowNumber])

	third := res.Accepted.Rows[2]
	assert.Equal(t, "CarrierBeta_000003", third[schema.ProjectID], "sequence is global to the run")
	assert.Equal(t, "2", third[schema.SourceRowNumber])
	assert.Equal(t, "2000000", third[schema.PenalAmount])
}

func TestExecuteKeepsProjectIDsUniqueForRepeatedCarrier(t *testing.T) {
	a := table.New("Acme_jan.csv", "Gross Premium")
	a.Append(table.Row{"Gross Premium": "1"})
	b := table.New("Acme_feb.csv", "Gross Premium")
	b.Append(table.Row{"Gross Premium": "2"})

	res, err := newStage().Execute(context.Background(), runtime.Input{Tables: []*table.Table{a, b}, Run: fixedRun})
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme_000001", "Acme_000002"}, res.Accepted.Values(schema.ProjectID))
}

func TestExecuteWithoutSourcesIsStructural(t *testing.T) {
	_, err := newStage().Execute(context.Background(), runtime.Input{Run: fixedRun})
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
}

func TestCarrierID(t *testing.T) {
	assert.Equal(t, "CarrierAlpha", CarrierID("data/raw/CarrierAlpha_Phase1.csv"))
	assert.Equal(t, "solo", CarrierID("solo.csv"))
	assert.Equal(t, "", CarrierID("_leading.csv"))
}

func TestExecuteIsDeterministic(t *testing.T) {
	in := runtime.Input{Tables: []*table.Table{alphaSource(), betaSource()}, Run: fixedRun}
	a, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)
	b, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a.Accepted, b.Accepted)
}

func TestNormalizationAcceptsEveryRow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		files := rapid.IntRange(1, 4).Draw(t, "files")
		var tables []*table.Table
		total := 0
		for f := 0; f < files; f++ {
			src := table.New(rapid.StringMatching(`[A-Z][a-z]{2,6}_[0-9]{1,3}\.csv`).Draw(t, "file"), "Gross Premium", "Effective Date")
			n := rapid.IntRange(0, 6).Draw(t, "rows")
			for i := 0; i < n; i++ {
				src.Append(table.Row{
					"Gross Premium":  rapid.String().Draw(t, "premium"),
					"Effective Date": rapid.String().Draw(t, "date"),
				})
			}
			total += n
			tables = append(tables, src)
		}

		res, err := newStage().Execute(context.Background(), runtime.Input{Tables: tables, Run: fixedRun})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if err := runtime.CheckPartition(domain.StageNormalize, total, res, schema.ProjectID); err != nil {
			t.Fatalf("partition: %v", err)
		}
		seen := map[string]bool{}
		for _, id := range res.Accepted.Values(schema.ProjectID) {
			if seen[id] {
				t.Fatalf("duplicate project_id %s", id)
			}
			seen[id] = true
		}
	})
}
