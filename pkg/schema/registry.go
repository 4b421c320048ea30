// Package schema is the registry of declared output columns for every
// pipeline stage. It holds data only; enforcement lives in pkg/table.
package schema

import (
	"sort"

	"github.com/polisai/bordereaux/pkg/table"
)

// SilverProject is the canonical per-record shape produced by normalization.
var SilverProject = table.Schema{
	Name: "silver_project_records",
	Fields: []table.Field{
		{Name: ProjectID, Kind: table.String},
		{Name: CarrierID, Kind: table.String},
		{Name: SourceFile, Kind: table.String},
		{Name: SourceRowNumber, Kind: table.Int},
		{Name: IngestionTimestamp, Kind: table.Timestamp},
		{Name: AsOfDate, Kind: table.Date},
		{Name: EffectiveDate, Kind: table.Date},
		{Name: ExpirationDate, Kind: table.Date},
		{Name: GrossPremium, Kind: table.Decimal},
		{Name: NetPremium, Kind: table.Decimal},
		{Name: CommissionAmount, Kind: table.Decimal},
		{Name: CededCommissionAmount, Kind: table.Decimal},
		{Name: CommissionRatePct, Kind: table.Decimal},
		{Name: QuotaSharePct, Kind: table.Decimal},
		{Name: PenalAmount, Kind: table.Decimal},
		{Name: ProductName, Kind: table.String},
		{Name: PremiumState, Kind: table.String},
		{Name: PrincipalName, Kind: table.String},
		{Name: PrincipalAddress, Kind: table.String},
		{Name: BrokerName, Kind: table.String},
		{Name: BrokerState, Kind: table.String},
		{Name: ObligeeName, Kind: table.String},
		{Name: ObligeeState, Kind: table.String},
		{Name: QualityFlags, Kind: table.String},
	},
}

// LocationEnriched extends SilverProject with postal code and tract columns.
var LocationEnriched = SilverProject.Extend("silver_location_enriched",
	table.Field{Name: ZipCode, Kind: table.String},
	table.Field{Name: ZipValidFormat, Kind: table.Bool},
	table.Field{Name: ZipInHUD, Kind: table.Bool},
	table.Field{Name: ZipErrorReason, Kind: table.String},
	table.Field{Name: ZipValidFlag, Kind: table.Bool},
	table.Field{Name: StateFIPS, Kind: table.String},
	table.Field{Name: CountyFIPS, Kind: table.String},
	table.Field{Name: TractFIPS, Kind: table.String},
	table.Field{Name: TractMatchRatio, Kind: table.Decimal},
	table.Field{Name: TractMatchFlag, Kind: table.Bool},
)

// LIDACClassified extends LocationEnriched with the eligibility verdict.
var LIDACClassified = LocationEnriched.Extend("gold_lidac_classified",
	table.Field{Name: CEJSTDisadvantaged, Kind: table.Bool},
	table.Field{Name: LIDACEligible, Kind: table.String},
	table.Field{Name: LIDACReason, Kind: table.String},
)

// AccumulationBucket is one row per postal code.
var AccumulationBucket = table.Schema{
	Name: "gold_zip_accumulation_flags",
	Fields: []table.Field{
		{Name: ZipCode, Kind: table.String},
		{Name: ProjectCount, Kind: table.Int},
		{Name: CarriersInvolved, Kind: table.Int},
		{Name: TotalGrossPremium, Kind: table.Money},
		{Name: TotalPenalAmount, Kind: table.Money},
		{Name: AccumulationFlag, Kind: table.String},
		{Name: AccumulationNote, Kind: table.String},
	},
}

// JournalLine is one debit or credit with a denormalized copy of its record.
var JournalLine = table.Schema{
	Name: "gold_journal_entries_for_intacct",
	Fields: []table.Field{
		{Name: JournalEntryID, Kind: table.String},
		{Name: LineNumber, Kind: table.Int},
		{Name: DrCr, Kind: table.String},
		{Name: GLAccount, Kind: table.String},
		{Name: Amount, Kind: table.Money},
		{Name: Currency, Kind: table.String},
		{Name: EffectiveDate, Kind: table.Date},
		{Name: AsOfDate, Kind: table.Date},
		{Name: ExpirationDate, Kind: table.Date},
		{Name: Description, Kind: table.String},
		{Name: ProjectID, Kind: table.String},
		{Name: CarrierID, Kind: table.String},
		{Name: ProductName, Kind: table.String},
		{Name: PremiumState, Kind: table.String},
		{Name: PrincipalName, Kind: table.String},
		{Name: PrincipalAddress, Kind: table.String},
		{Name: ZipCode, Kind: table.String},
		{Name: StateFIPS, Kind: table.String},
		{Name: CountyFIPS, Kind: table.String},
		{Name: TractFIPS, Kind: table.String},
		{Name: LIDACEligible, Kind: table.String},
		{Name: LIDACReason, Kind: table.String},
		{Name: SourceFile, Kind: table.String},
		{Name: SourceRowNumber, Kind: table.Int},
		{Name: BrokerName, Kind: table.String},
		{Name: BrokerState, Kind: table.String},
		{Name: ObligeeName, Kind: table.String},
		{Name: ObligeeState, Kind: table.String},
		{Name: TractMatchRatio, Kind: table.Decimal},
		{Name: TractMatchFlag, Kind: table.Bool},
	},
}

// ExceptionsSummary is the cross-stage exception census.
var ExceptionsSummary = table.Schema{
	Name: "phase1_exceptions_summary",
	Fields: []table.Field{
		{Name: SummaryStep, Kind: table.String},
		{Name: SummaryFile, Kind: table.String},
		{Name: SummaryRows, Kind: table.Int},
	},
}

// Exception shapes. Each carries its stage's input columns plus a reason.
var (
	NormalizationExceptions = SilverProject.Extend("exceptions_step2_extraction")
	GeoExceptions           = LocationEnriched.Extend("exceptions_step3_zip_issues")
	EligibilityExceptions   = LocationEnriched.Extend("exceptions_step4_missing_cejst_match",
		table.Field{Name: LIDACErrorReason, Kind: table.String})
	AccumulationExceptions = LIDACClassified.Extend("exceptions_step5_missing_zip",
		table.Field{Name: AccumulationErrorReason, Kind: table.String})
	LedgerExceptions = LIDACClassified.Extend("exceptions_step6_journal_mapping",
		table.Field{Name: LedgerErrorReason, Kind: table.String})
)

// Preferred leading columns for the consolidated deliverables.
var (
	IntacctExportOrder = []string{
		JournalEntryID, ProjectID, CarrierID, AsOfDate, EffectiveDate, ExpirationDate,
		LineNumber, DrCr, GLAccount, Amount, Currency, PremiumState,
		ZipCode, StateFIPS, CountyFIPS, TractFIPS, LIDACEligible, LIDACReason,
		SourceFile, SourceRowNumber,
	}
	LIDACReportOrder = []string{
		ProjectID, CarrierID, AsOfDate, EffectiveDate, ExpirationDate,
		GrossPremium, NetPremium, PenalAmount, ProductName, PremiumState,
		PrincipalName, PrincipalAddress, ZipCode, StateFIPS, CountyFIPS, TractFIPS,
		CEJSTDisadvantaged, LIDACEligible, LIDACReason, SourceFile, SourceRowNumber,
	}
)

var registry = map[string]table.Schema{}

func init() {
	for _, s := range []table.Schema{
		SilverProject, LocationEnriched, LIDACClassified, AccumulationBucket,
		JournalLine, ExceptionsSummary, NormalizationExceptions, GeoExceptions,
		EligibilityExceptions, AccumulationExceptions, LedgerExceptions,
	} {
		registry[s.Name] = s
	}
}

// Lookup returns the declared schema registered under name.
func Lookup(name string) (table.Schema, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names lists every registered schema in lexical order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
