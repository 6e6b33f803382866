package models

import "time"

// PortfolioMetrics is a snapshot folded from one complete batch of enriched records
type PortfolioMetrics struct {
	GeneratedAt      time.Time                `json:"generated_at"`
	PortfolioSummary PortfolioSummary         `json:"portfolio_summary"`
	SectorAnalysis   map[string]SectorMetrics `json:"sector_analysis"`
	RiskMetrics      RiskMetrics              `json:"risk_metrics"`
	ValuationMetrics ValuationMetrics         `json:"valuation_metrics"`
	RiskAnalysis     RiskAnalysis             `json:"risk_analysis"`
	MarketAnalysis   MarketAnalysis           `json:"market_analysis"`
	Compliance       ComplianceMetrics        `json:"compliance"`
	KeyConcerns      []string                 `json:"key_concerns"`
}

// PortfolioSummary holds headline totals. Capitals are in crore.
type PortfolioSummary struct {
	TotalCompanies           int            `json:"total_companies"`
	TotalAuthorizedCapitalCr float64        `json:"total_authorized_capital_cr"`
	TotalPaidUpCapitalCr     float64        `json:"total_paid_up_capital_cr"`
	AverageCompanyAge        float64        `json:"average_company_age"`
	AverageGovernanceScore   float64        `json:"average_governance_score"`
	SectorDiversification    int            `json:"sector_diversification"`
	LargestSector            string         `json:"largest_sector"`
	LargestSectorCount       int            `json:"largest_sector_count"`
	SectorDistribution       map[string]int `json:"sector_distribution"`
	StateDistribution        map[string]int `json:"state_distribution"`
	CityDistribution         map[string]int `json:"city_distribution"`
}

// SectorMetrics describes one industry bucket
type SectorMetrics struct {
	CompanyCount           int     `json:"company_count"`
	PercentageOfPortfolio  float64 `json:"percentage_of_portfolio"`
	AvgAuthorizedCapitalCr float64 `json:"avg_authorized_capital_cr"`
	AvgPaidUpCapitalCr     float64 `json:"avg_paid_up_capital_cr"`
	AvgGovernanceScore     float64 `json:"avg_governance_score"`
	AvgCompanyAge          float64 `json:"avg_company_age"`
	CapitalEfficiency      float64 `json:"capital_efficiency"`
}

// RiskMetrics are the portfolio-level concentration and risk composites
type RiskMetrics struct {
	SectorConcentrationRisk float64 `json:"sector_concentration_risk"` // HHI over sector shares
	DiversificationRatio    float64 `json:"diversification_ratio"`
	PortfolioGovernanceRisk float64 `json:"portfolio_governance_risk"`
	GovernanceVolatility    float64 `json:"governance_volatility"`
	MaturityRisk            float64 `json:"maturity_risk"`
	PortfolioChargeRisk     float64 `json:"portfolio_charge_risk"`
	OverallRiskScore        float64 `json:"overall_risk_score"`
}

// ValuationMetrics approximate an asset-based valuation. Amounts are in crore.
type ValuationMetrics struct {
	TotalPortfolioEquityCr float64            `json:"total_portfolio_equity_cr"`
	TotalPortfolioAssetsCr float64            `json:"total_portfolio_assets_cr"`
	PortfolioLeverage      float64            `json:"portfolio_leverage"`
	SectorPremiums         map[string]float64 `json:"sector_premiums"`
}

// RiskAnalysis groups the five risk lenses
type RiskAnalysis struct {
	Credit      CreditRisk      `json:"credit_risk"`
	Operational OperationalRisk `json:"operational_risk"`
	Market      MarketRisk      `json:"market_risk"`
	Regulatory  RegulatoryRisk  `json:"regulatory_risk"`
	Strategic   StrategicRisk   `json:"strategic_risk"`
}

type CreditRisk struct {
	AverageDebtEquityRatio   float64 `json:"average_debt_equity_ratio"`
	DebtRatioVolatility      float64 `json:"debt_ratio_volatility"`
	AverageChargeClosureRate float64 `json:"average_charge_closure_rate"`
	DebtScore                float64 `json:"debt_score"`
	ClosureScore             float64 `json:"closure_score"`
	PortfolioCreditScore     float64 `json:"portfolio_credit_score"`
}

type OperationalRisk struct {
	AverageGovernanceScore   float64 `json:"average_governance_score"`
	AverageDirectorStability float64 `json:"average_director_stability"`
	AverageComplianceScore   float64 `json:"average_compliance_score"`
	OperationalRiskScore     float64 `json:"operational_risk_score"`
}

// SectorMaturity is the lifecycle stage of one sector
type SectorMaturity struct {
	AvgAge        float64 `json:"avg_age"`
	MaturityStage string  `json:"maturity_stage"`
}

type MarketRisk struct {
	SectorConcentration    map[string]int            `json:"sector_concentration"`
	MostConcentratedSector string                    `json:"most_concentrated_sector"`
	SectorMaturity         map[string]SectorMaturity `json:"sector_maturity_analysis"`
	MarketRiskScore        float64                   `json:"market_risk_score"`
}

type RegulatoryRisk struct {
	ComplianceRate             float64 `json:"compliance_rate"`
	ChargeManagementCompliance float64 `json:"charge_management_compliance"`
	RegulatoryRiskScore        float64 `json:"regulatory_risk_score"`
}

type StrategicRisk struct {
	BusinessDiversityScore float64 `json:"business_diversity_score"`
	CapitalEfficiencyScore float64 `json:"capital_efficiency_score"`
	InnovationScore        float64 `json:"innovation_score"`
	StrategicRiskScore     float64 `json:"strategic_risk_score"`
}

// MarketAnalysis groups trend, structure and opportunity views
type MarketAnalysis struct {
	IndustryTrends       IndustryTrends               `json:"industry_trends"`
	CompetitiveLandscape map[string]SectorCompetition `json:"competitive_landscape"`
	Opportunities        MarketOpportunities          `json:"market_opportunities"`
	MacroFactors         MacroFactors                 `json:"macroeconomic_factors"`
}

type IndustryTrends struct {
	IncorporationsByYear     map[int]int            `json:"incorporations_by_year"`
	GrowthRate5Yr            float64                `json:"growth_rate_5yr"`
	RecentIncorporations     int                    `json:"recent_incorporations"`
	HistoricalIncorporations int                    `json:"historical_incorporations"`
	SectorTrends             map[string]SectorTrend `json:"sector_trends"`
}

// SectorTrend is a least-squares fit of incorporations per year
type SectorTrend struct {
	Slope     float64 `json:"trend_slope"`
	Strength  float64 `json:"trend_strength"` // r squared
	Direction string  `json:"trend_direction"`
}

// SectorCompetition describes market structure inside one sector
type SectorCompetition struct {
	MarketStructure string        `json:"market_structure"`
	HHI             float64       `json:"hhi_index"`
	NumberOfPlayers int           `json:"number_of_players"`
	TopPlayers      []MarketShare `json:"top_players"`
}

type MarketShare struct {
	Name        string  `json:"name"`
	MarketShare float64 `json:"market_share"` // percent
}

type MarketOpportunities struct {
	SectorGaps              map[string]SectorGap `json:"sector_gaps"`
	HighGrowthPotential     []OpportunityCompany `json:"high_growth_potential"`
	CapitalEfficientTargets []OpportunityCompany `json:"capital_efficient_targets"`
}

type SectorGap struct {
	CurrentRepresentation  float64 `json:"current_representation"`
	ExpectedRepresentation float64 `json:"expected_representation"`
	OpportunityGap         float64 `json:"opportunity_gap"`
}

type OpportunityCompany struct {
	Name               string  `json:"name"`
	Sector             string  `json:"sector"`
	Age                int     `json:"age,omitempty"`
	GovernanceScore    float64 `json:"governance_score"`
	CapitalUtilization float64 `json:"capital_utilization,omitempty"`
}

type MacroFactors struct {
	InterestRateSensitivity  float64  `json:"interest_rate_sensitivity"`
	RegulatoryExposure       float64  `json:"regulatory_exposure"`
	EconomicCycleSensitivity float64  `json:"economic_cycle_sensitivity"`
	TechnologyDisruptionRisk float64  `json:"technology_disruption_risk"`
	HighDebtCompanies        []string `json:"high_debt_companies"`
}

// ComplianceMetrics is the four-part compliance composite
type ComplianceMetrics struct {
	ROC                    ROCCompliance          `json:"roc_compliance"`
	Directors              DirectorCompliance     `json:"director_compliance"`
	Charges                ChargeCompliance       `json:"charge_compliance"`
	Transparency           TransparencyCompliance `json:"transparency_compliance"`
	OverallComplianceScore float64                `json:"overall_compliance_score"`
}

type ROCCompliance struct {
	RecentUpdatesCount int     `json:"recent_updates_count"`
	ComplianceRate     float64 `json:"compliance_rate"`
	ComplianceScore    float64 `json:"compliance_score"`
	Category           string  `json:"compliance_category"`
}

type DirectorCompliance struct {
	CompliantCompanies int      `json:"compliant_companies"`
	ComplianceRate     float64  `json:"compliance_rate"`
	ComplianceScore    float64  `json:"compliance_score"`
	Issues             []string `json:"director_issues"`
}

type ChargeCompliance struct {
	CompaniesWithCharges int     `json:"companies_with_charges"`
	TotalCharges         int     `json:"total_charges"`
	DocumentationRate    float64 `json:"documentation_rate"`
	ComplianceScore      float64 `json:"compliance_score"`
}

type TransparencyCompliance struct {
	AverageTransparencyScore float64 `json:"average_transparency_score"`
	ComplianceScore          float64 `json:"compliance_score"`
	CompaniesAbove80         int     `json:"companies_above_80_percent"`
	CompaniesBelow50         int     `json:"companies_below_50_percent"`
}

// RunStats reports what a batch run did
type RunStats struct {
	RunID          string              `json:"run_id"`
	Attempted      int                 `json:"attempted"`
	Succeeded      int                 `json:"succeeded"`
	Failed         int                 `json:"failed"`
	Skipped        int                 `json:"skipped"`
	FailuresByKind map[FailureKind]int `json:"failures_by_kind"`
	Cancelled      bool                `json:"cancelled"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
}

// Insights holds best-effort free text from the text-generation collaborator
type Insights struct {
	InvestmentRecommendations string `json:"investment_recommendations,omitempty"`
	RiskAssessment            string `json:"risk_assessment,omitempty"`
	MarketOpportunities       string `json:"market_opportunities,omitempty"`
	StrategicRecommendations  string `json:"strategic_recommendations,omitempty"`
}

// IsEmpty reports whether no insight section was produced
func (i Insights) IsEmpty() bool {
	return i.InvestmentRecommendations == "" && i.RiskAssessment == "" &&
		i.MarketOpportunities == "" && i.StrategicRecommendations == ""
}
