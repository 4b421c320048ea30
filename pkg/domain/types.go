package domain

// Tier classifies the risk concentration of an accumulation bucket.
type Tier string

const (
	TierRed    Tier = "RED"
	TierYellow Tier = "YELLOW"
	TierGreen  Tier = "GREEN"
)

// Direction is the debit/credit side of a ledger line.
type Direction string

const (
	Debit  Direction = "DR"
	Credit Direction = "CR"
)

// Stage labels used in artifact names and the exception census.
const (
	StageNormalize    = "STEP2"
	StageGeo          = "STEP3"
	StageEligibility  = "STEP4"
	StageAccumulation = "STEP5"
	StageLedger       = "STEP6"
	StageConsolidate  = "STEP7"
)
