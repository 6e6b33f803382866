package portfolio

import (
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/enrichment"
)

// Sector maturity stages by average company age
const (
	StageEmerging = "emerging"
	StageGrowth   = "growth"
	StageMature   = "mature"
)

// innovationMaxAge is the age under which a technology company counts as innovative
const innovationMaxAge = 15

// closureRate is the fraction of charges with a closure date; no charges counts as fully closed
func closureRate(r models.EnrichedRecord) float64 {
	if len(r.Charges) == 0 {
		return 1
	}
	closed := 0
	for _, c := range r.Charges {
		if c.Status == models.ChargeClosed {
			closed++
		}
	}
	return float64(closed) / float64(len(r.Charges))
}

func creditRisk(b *batch) models.CreditRisk {
	if b.size() == 0 {
		return models.CreditRisk{AverageChargeClosureRate: 1, DebtScore: 100, ClosureScore: 100, PortfolioCreditScore: 100}
	}

	debt := make([]float64, 0, b.size())
	closure := make([]float64, 0, b.size())
	for _, r := range b.records {
		debt = append(debt, r.Ratio(models.RatioDebtToEquity))
		closure = append(closure, closureRate(r))
	}

	credit := models.CreditRisk{
		AverageDebtEquityRatio:   Mean(debt),
		DebtRatioVolatility:      Stddev(debt),
		AverageChargeClosureRate: Mean(closure),
	}
	credit.DebtScore = 100 - credit.AverageDebtEquityRatio*50
	if credit.DebtScore < 0 {
		credit.DebtScore = 0
	}
	credit.ClosureScore = credit.AverageChargeClosureRate * 100
	credit.PortfolioCreditScore = (credit.DebtScore + credit.ClosureScore) / 2
	return credit
}

func operationalRisk(b *batch) models.OperationalRisk {
	if b.size() == 0 {
		return models.OperationalRisk{}
	}

	stability := make([]float64, 0, b.size())
	freshness := make([]float64, 0, b.size())
	for _, r := range b.records {
		turnover := 0.0
		if r.RiskIndicators.DirectorTurnoverRisk != nil {
			turnover = *r.RiskIndicators.DirectorTurnoverRisk
		}
		stability = append(stability, 1-turnover)

		if r.RiskIndicators.ComplianceStaleness == models.StalenessRecent {
			freshness = append(freshness, 100)
		} else {
			freshness = append(freshness, 50)
		}
	}

	op := models.OperationalRisk{
		AverageGovernanceScore:   Mean(b.governanceScores()),
		AverageDirectorStability: Mean(stability),
		AverageComplianceScore:   Mean(freshness),
	}
	op.OperationalRiskScore = 100 - Mean([]float64{
		op.AverageGovernanceScore,
		op.AverageDirectorStability * 100,
		op.AverageComplianceScore,
	})
	return op
}

// maturityStage buckets a sector by the average age of its companies
func maturityStage(avgAge float64) string {
	switch {
	case avgAge < 10:
		return StageEmerging
	case avgAge < 20:
		return StageGrowth
	default:
		return StageMature
	}
}

func marketRisk(b *batch) models.MarketRisk {
	market := models.MarketRisk{
		SectorConcentration: make(map[string]int, len(b.sectors)),
		SectorMaturity:      make(map[string]models.SectorMaturity),
	}
	if b.size() == 0 {
		return market
	}

	for sector, count := range b.sectors {
		market.SectorConcentration[sector] = count
	}
	market.MostConcentratedSector = b.order[0]

	agesBySector := make(map[string][]float64)
	for _, r := range b.records {
		if r.CompanyAgeYears != nil && *r.CompanyAgeYears > 0 {
			agesBySector[r.IndustryClassification] = append(agesBySector[r.IndustryClassification], float64(*r.CompanyAgeYears))
		}
	}
	emerging := 0
	for sector, ages := range agesBySector {
		avg := Mean(ages)
		stage := maturityStage(avg)
		if stage == StageEmerging {
			emerging++
		}
		market.SectorMaturity[sector] = models.SectorMaturity{AvgAge: avg, MaturityStage: stage}
	}

	concentration := percent(b.sectors[b.order[0]], b.size())
	emergingExposure := percent(emerging, len(agesBySector))
	market.MarketRiskScore = concentration*0.6 + emergingExposure*0.4
	return market
}

func regulatoryRisk(b *batch) models.RegulatoryRisk {
	if b.size() == 0 {
		return models.RegulatoryRisk{}
	}

	filed := make([]float64, 0, b.size())
	charges := make([]float64, 0, b.size())
	for _, r := range b.records {
		if enrichment.HasFilingMarker(r.LastUpdated) {
			filed = append(filed, 1)
		} else {
			filed = append(filed, 0)
		}
		charges = append(charges, closureRate(r))
	}

	reg := models.RegulatoryRisk{
		ComplianceRate:             Mean(filed) * 100,
		ChargeManagementCompliance: Mean(charges) * 100,
	}
	reg.RegulatoryRiskScore = 100 - Mean([]float64{reg.ComplianceRate, reg.ChargeManagementCompliance})
	return reg
}

func strategicRisk(b *batch) models.StrategicRisk {
	if b.size() == 0 {
		return models.StrategicRisk{}
	}

	diversity := float64(len(b.sectors)) / 8 * 100
	if diversity > 100 {
		diversity = 100
	}

	utilization := make([]float64, 0, b.size())
	innovative := 0
	for _, r := range b.records {
		utilization = append(utilization, r.Ratio(models.RatioCapitalUtilization))
		if r.IndustryClassification == "technology" && r.AgeOr(100) < innovationMaxAge {
			innovative++
		}
	}

	strategic := models.StrategicRisk{
		BusinessDiversityScore: diversity,
		CapitalEfficiencyScore: Mean(utilization) * 100,
		InnovationScore:        percent(innovative, b.size()),
	}
	strategic.StrategicRiskScore = 100 - Mean([]float64{
		strategic.BusinessDiversityScore,
		strategic.CapitalEfficiencyScore,
		strategic.InnovationScore,
	})
	return strategic
}
