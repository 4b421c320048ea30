package accumulation

import (
	"github.com/shopspring/decimal"

	"github.com/polisai/bordereaux/pkg/domain"
)

// Thresholds is the tier ladder. Bounds are inclusive.
type Thresholds struct {
	RedCount    int
	RedPenal    decimal.Decimal
	YellowCount int
	YellowPenal decimal.Decimal
}

// DefaultThresholds flags four or more projects or 5M of penal exposure as
// RED, and two or more projects or 2M as YELLOW.
var DefaultThresholds = Thresholds{
	RedCount:    4,
	RedPenal:    decimal.NewFromInt(5_000_000),
	YellowCount: 2,
	YellowPenal: decimal.NewFromInt(2_000_000),
}

var notes = map[domain.Tier]string{
	domain.TierRed:    "High density or penal amount - review",
	domain.TierYellow: "Moderate density or penal amount",
	domain.TierGreen:  "Low density / low penal amount",
}

// Classify evaluates the ladder top-down; the first tier that matches wins.
func (th Thresholds) Classify(projects int, penal decimal.Decimal) domain.Tier {
	switch {
	case projects >= th.RedCount || penal.GreaterThanOrEqual(th.RedPenal):
		return domain.TierRed
	case projects >= th.YellowCount || penal.GreaterThanOrEqual(th.YellowPenal):
		return domain.TierYellow
	default:
		return domain.TierGreen
	}
}

// Note returns the operator-facing description of tier.
func Note(tier domain.Tier) string {
	return notes[tier]
}
