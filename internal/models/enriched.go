package models

import "time"

// Staleness values for RiskIndicators.ComplianceStaleness
const (
	StalenessRecent   = "recent"
	StalenessOutdated = "outdated"
	StalenessUnknown  = "unknown"
)

// Financial ratio names
const (
	RatioCapitalUtilization = "capital_utilization"
	RatioCapitalBuffer      = "capital_buffer"
	RatioDebtToEquity       = "debt_to_equity"
	RatioFinancialLeverage  = "financial_leverage"
	RatioDirectorEfficiency = "director_efficiency"
)

// EnrichedRecord is a CompanyRecord plus fields derived purely from it
type EnrichedRecord struct {
	CompanyRecord
	FinancialRatios        map[string]float64 `json:"financial_ratios"`
	IndustryClassification string             `json:"industry_classification"`
	CompanyAgeYears        *int               `json:"company_age_years"`
	IncorporationYear      *int               `json:"incorporation_year,omitempty"`
	RiskIndicators         RiskIndicators     `json:"risk_indicators"`
	GovernanceScore        float64            `json:"governance_score"`
	EnrichedAt             time.Time          `json:"enriched_at"`
}

// RiskIndicators are per-record risk signals
type RiskIndicators struct {
	TotalCharges          int      `json:"total_charges"`
	ActiveCharges         int      `json:"active_charges"`
	ClosedCharges         int      `json:"closed_charges"`
	DirectorTurnoverRisk  *float64 `json:"director_turnover_risk,omitempty"`
	RecentDirectorChanges *int     `json:"recent_director_changes,omitempty"`
	ComplianceStaleness   string   `json:"compliance_staleness"`
}

// Ratio returns a named ratio, or zero when it was not computed
func (e *EnrichedRecord) Ratio(name string) float64 {
	if e.FinancialRatios == nil {
		return 0
	}
	return e.FinancialRatios[name]
}

// AgeOr returns the company age or the fallback when unknown
func (e *EnrichedRecord) AgeOr(fallback int) int {
	if e.CompanyAgeYears == nil {
		return fallback
	}
	return *e.CompanyAgeYears
}
