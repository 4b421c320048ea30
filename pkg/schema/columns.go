package schema

// Canonical record columns.
const (
	ProjectID             = "project_id"
	CarrierID             = "carrier_id"
	SourceFile            = "source_file"
	SourceRowNumber       = "source_row_number"
	IngestionTimestamp    = "ingestion_timestamp_utc"
	AsOfDate              = "as_of_date"
	EffectiveDate         = "effective_date"
	ExpirationDate        = "expiration_date"
	GrossPremium          = "gross_premium"
	NetPremium            = "net_premium"
	CommissionAmount      = "commission_amount"
	CededCommissionAmount = "ceded_commission_amount"
	CommissionRatePct     = "commission_rate_pct"
	QuotaSharePct         = "quota_share_pct"
	PenalAmount           = "penal_amount"
	ProductName           = "product_name"
	PremiumState          = "premium_state"
	PrincipalName         = "principal_name"
	PrincipalAddress      = "principal_address"
	BrokerName            = "broker_name"
	BrokerState           = "broker_state"
	ObligeeName           = "obligee_name"
	ObligeeState          = "obligee_state"
	QualityFlags          = "quality_flags"
)

// Geographic enrichment columns.
const (
	ZipCode         = "zip_code"
	ZipValidFormat  = "zip_valid_format"
	ZipInHUD        = "zip_in_hud"
	ZipErrorReason  = "zip_error_reason"
	ZipValidFlag    = "zip_valid_flag"
	StateFIPS       = "state_fips"
	CountyFIPS      = "county_fips"
	TractFIPS       = "tract_fips"
	TractMatchRatio = "tract_match_ratio"
	TractMatchFlag  = "tract_match_flag"
)

// Eligibility columns.
const (
	CEJSTDisadvantaged = "cejst_disadvantaged"
	LIDACEligible      = "lidac_eligible"
	LIDACReason        = "lidac_reason"
	LIDACErrorReason   = "lidac_error_reason"
)

// Accumulation bucket columns.
const (
	ProjectCount            = "project_count"
	CarriersInvolved        = "carriers_involved"
	TotalGrossPremium       = "total_gross_premium"
	TotalPenalAmount        = "total_penal_amount"
	AccumulationFlag        = "accumulation_flag"
	AccumulationNote        = "accumulation_note"
	AccumulationErrorReason = "accumulation_error_reason"
)

// Journal line columns.
const (
	JournalEntryID    = "journal_entry_id"
	LineNumber        = "line_number"
	DrCr              = "dr_cr"
	GLAccount         = "gl_account"
	Amount            = "amount"
	Currency          = "currency"
	Description       = "description"
	LedgerErrorReason = "ledger_error_reason"
)

// Exception census columns.
const (
	SummaryStep = "step"
	SummaryFile = "file"
	SummaryRows = "rows"
)
