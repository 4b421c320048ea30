package normalize

import "github.com/polisai/bordereaux/pkg/schema"

// DefaultAliases lists, per canonical field, the carrier headers recognised in
// priority order. Matching is case-insensitive and ignores whitespace runs.
var DefaultAliases = map[string][]string{
	schema.EffectiveDate:         {"Effective Date", "Eff Date", "Policy Effective Date", "effective_date"},
	schema.ExpirationDate:        {"Expiration Date", "Exp Date", "Policy Expiration Date", "expiration_date"},
	schema.GrossPremium:          {"Gross Premium", "Gross Written Premium", "gross_premium"},
	schema.QuotaSharePct:         {"Quota Share %", "Quota Share", "quota_share_pct"},
	schema.CommissionRatePct:     {"Commission Rate", "Commission %", "commission_rate_pct"},
	schema.CommissionAmount:      {"Commission", "Commission Amount", "commission_amount"},
	schema.CededCommissionAmount: {"Ceded Commission", "ceded_commission_amount"},
	schema.NetPremium:            {"Net Premium", "Net Written Premium", "net_premium"},
	schema.ProductName:           {"Product", "Product Name", "product_name"},
	schema.PremiumState:          {"Premium State", "premium_state"},
	schema.PrincipalName:         {"Principal", "Principal Name", "principal_name"},
	schema.PrincipalAddress:      {"Principal / Account Mailing Address", "Principal Address", "Mailing Address", "principal_address"},
	schema.PenalAmount:           {"Penal Amount", "Bond Amount", "penal_amount"},
	schema.BrokerName:            {"Broker Name", "Broker", "broker_name"},
	schema.BrokerState:           {"Broker State", "broker_state"},
	schema.ObligeeName:           {"Obligee Name", "Obligee", "obligee_name"},
	schema.ObligeeState:          {"Obligee State", "obligee_state"},
}

var numericFields = map[string]bool{
	schema.GrossPremium:          true,
	schema.NetPremium:            true,
	schema.CommissionAmount:      true,
	schema.CededCommissionAmount: true,
	schema.CommissionRatePct:     true,
	schema.QuotaSharePct:         true,
	schema.PenalAmount:           true,
}

var dateFields = map[string]bool{
	schema.EffectiveDate:  true,
	schema.ExpirationDate: true,
}
