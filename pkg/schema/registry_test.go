package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/bordereaux/pkg/table"
)

func TestStageSchemasExtendTheirPredecessor(t *testing.T) {
	silver := SilverProject.Columns()
	geo := LocationEnriched.Columns()
	lidac := LIDACClassified.Columns()

	require.Greater(t, len(geo), len(silver))
	assert.Equal(t, silver, geo[:len(silver)])
	assert.Equal(t, geo, lidac[:len(geo)])
	assert.Equal(t, []string{CEJSTDisadvantaged, LIDACEligible, LIDACReason}, lidac[len(geo):])
}

func TestExceptionSchemasEndWithReasonColumn(t *testing.T) {
	cases := map[string]table.Schema{
		LIDACErrorReason:        EligibilityExceptions,
		AccumulationErrorReason: AccumulationExceptions,
		LedgerErrorReason:       LedgerExceptions,
	}
	for reason, s := range cases {
		cols := s.Columns()
		assert.Equal(t, reason, cols[len(cols)-1], s.Name)
	}
	assert.Equal(t, LocationEnriched.Columns(), GeoExceptions.Columns())
}

func TestLookup(t *testing.T) {
	s, ok := Lookup("gold_zip_accumulation_flags")
	require.True(t, ok)
	assert.Equal(t, AccumulationBucket.Columns(), s.Columns())

	_, ok = Lookup("nope")
	assert.False(t, ok)
	assert.Len(t, Names(), 11)
}

func TestMoneyColumnsAreFixedScale(t *testing.T) {
	k, ok := JournalLine.Kind(Amount)
	require.True(t, ok)
	assert.Equal(t, table.Money, k)
}
