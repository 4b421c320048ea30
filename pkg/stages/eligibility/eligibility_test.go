package eligibility

import (
	"context"
	"io"
	"log/slog"
	"testing"

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

func located(tracts ...string) *table.Table {
	t := table.New(schema.LocationEnriched.Name, schema.LocationEnriched.Columns()...)
	for i, tr := range tracts {
		t.Append(table.Row{schema.ProjectID: "P" + string(rune('A'+i)), schema.TractFIPS: tr})
	}
	return t
}

func dataset(rows ...[2]string) *table.Table {
	t := table.New("cejst_v2_communities.csv", "Census tract 2010 ID", "Identified as disadvantaged")
	for _, r := range rows {
		t.Append(table.Row{"Census tract 2010 ID": r[0], "Identified as disadvantaged": r[1]})
	}
	return t
}

func TestNormalizeTract(t *testing.T) {
	assert.Equal(t, "42037000100", NormalizeTract("1400000US42037000100"))
	assert.Equal(t, "42037000100", NormalizeTract(" 42037000100 "))
	assert.Equal(t, "", NormalizeTract("4203700010"))
	assert.Equal(t, "", NormalizeTract("420370001001"))
	assert.Equal(t, "", NormalizeTract(""))
}

func TestDisadvantagedVocabulary(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "Yes", "y", "Disadvantaged"} {
		assert.True(t, Disadvantaged(v), v)
	}
	for _, v := range []string{"0", "false", "", "N", "partially"} {
		assert.False(t, Disadvantaged(v), v)
	}
}

func TestBuildLookupKeepsFirstOccurrence(t *testing.T) {
	l, missing := BuildLookup(dataset(
		[2]string{"42037000100", "True"},
		[2]string{"1400000US42037000100", "False"},
		[2]string{"bogus", "True"},
	))
	require.Empty(t, missing)

	flag, ok := l.Get("42037000100")
	require.True(t, ok)
	assert.True(t, flag)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, l.Conflicts())
	assert.Equal(t, 1, l.Invalid())
}

func TestBuildLookupResolvesAlternateColumns(t *testing.T) {
	ds := table.New("alt.csv", "geoid", "DI")
	ds.Append(table.Row{"geoid": "42037000200", "DI": "1"})

	l, missing := BuildLookup(ds)
	require.Empty(t, missing)
	flag, ok := l.Get("42037000200")
	assert.True(t, ok)
	assert.True(t, flag)
}

func TestExecuteClassifiesAndRoutesExceptions(t *testing.T) {
	in := runtime.Input{
		Tables: []*table.Table{located("42037000100", "42037000200", "", "99999999999")},
		References: map[string]*table.Table{
			DatasetReference: dataset([2]string{"42037000100", "1"}, [2]string{"42037000200", "0"}),
		},
	}

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 2, res.Accepted.Len())
	assert.Equal(t, "true", res.Accepted.Rows[0][schema.CEJSTDisadvantaged])
	assert.Equal(t, EligibleYes, res.Accepted.Rows[0][schema.LIDACEligible])
	assert.Equal(t, ReasonDisadvantaged, res.Accepted.Rows[0][schema.LIDACReason])
	assert.Equal(t, "false", res.Accepted.Rows[1][schema.CEJSTDisadvantaged])
	assert.Equal(t, EligibleNo, res.Accepted.Rows[1][schema.LIDACEligible])

	require.Equal(t, 2, res.Exceptions.Len())
	assert.Equal(t, ReasonTractInvalid, res.Exceptions.Rows[0][schema.LIDACErrorReason])
	assert.Equal(t, ReasonNoMatch, res.Exceptions.Rows[1][schema.LIDACErrorReason])

	assert.Equal(t, schema.LIDACClassified.Columns(), res.Accepted.Columns)
	assert.Equal(t, schema.EligibilityExceptions.Columns(), res.Exceptions.Columns)
}

func TestExecuteStructuralFailures(t *testing.T) {
	_, err := newStage().Execute(context.Background(), runtime.Input{Tables: []*table.Table{located("42037000100")}})
	assert.ErrorIs(t, err, domain.ErrInputNotFound)

	_, err = newStage().Execute(context.Background(), runtime.Input{
		Tables:     []*table.Table{located("42037000100")},
		References: map[string]*table.Table{DatasetReference: table.New("cejst.csv", "name")},
	})
	assert.ErrorIs(t, err, domain.ErrReferenceUnreadable)

	_, err = newStage().Execute(context.Background(), runtime.Input{
		Tables:     []*table.Table{table.New("loc", schema.ProjectID)},
		References: map[string]*table.Table{DatasetReference: dataset()},
	})
	assert.ErrorIs(t, err, domain.ErrColumnMissing)
}

func TestEligibilityPartitionIsTotalAndDisjoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pool := []string{"42037000100", "1400000US42037000200", "42037000300", "", "123", "x"}
		tracts := rapid.SliceOfN(rapid.SampledFrom(pool), 0, 15).Draw(t, "tracts")
		in := runtime.Input{
			Tables: []*table.Table{located(tracts...)},
			References: map[string]*table.Table{
				DatasetReference: dataset([2]string{"42037000100", "y"}, [2]string{"42037000200", "n"}),
			},
		}

		res, err := newStage().Execute(context.Background(), in)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if err := runtime.CheckPartition(domain.StageEligibility, len(tracts), res, schema.ProjectID); err != nil {
			t.Fatalf("partition: %v", err)
		}
	})
}
