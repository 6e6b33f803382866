// -----------------------------------------------------------------------
// Aggregator - folds a batch of enriched records into portfolio metrics
// -----------------------------------------------------------------------

package portfolio

import (
	"sort"
	"time"

	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/currency"
	"github.com/ternarybob/corpscan/internal/services/enrichment"
)

// benchmarkSectors receive a governance premium in valuation metrics
var benchmarkSectors = []string{"technology", "financial", "healthcare", "manufacturing"}

// batch is the per-call view of the records with derived values computed once
type batch struct {
	records []models.EnrichedRecord
	now     time.Time
	sectors map[string]int
	order   []string // sectors by count descending, then name
}

func newBatch(records []models.EnrichedRecord, now time.Time) *batch {
	b := &batch{records: records, now: now, sectors: make(map[string]int)}
	for _, r := range records {
		b.sectors[r.IndustryClassification]++
	}
	for sector := range b.sectors {
		b.order = append(b.order, sector)
	}
	sort.Slice(b.order, func(i, j int) bool {
		ci, cj := b.sectors[b.order[i]], b.sectors[b.order[j]]
		if ci != cj {
			return ci > cj
		}
		return b.order[i] < b.order[j]
	})
	return b
}

func (b *batch) size() int {
	return len(b.records)
}

func (b *batch) governanceScores() []float64 {
	scores := make([]float64, len(b.records))
	for i, r := range b.records {
		scores[i] = r.GovernanceScore
	}
	return scores
}

func (b *batch) knownAges() []float64 {
	var ages []float64
	for _, r := range b.records {
		if r.CompanyAgeYears != nil && *r.CompanyAgeYears > 0 {
			ages = append(ages, float64(*r.CompanyAgeYears))
		}
	}
	return ages
}

func (b *batch) inSector(sector string) []models.EnrichedRecord {
	var out []models.EnrichedRecord
	for _, r := range b.records {
		if r.IndustryClassification == sector {
			out = append(out, r)
		}
	}
	return out
}

func (b *batch) countIn(sectors ...string) int {
	n := 0
	for _, s := range sectors {
		n += b.sectors[s]
	}
	return n
}

// Aggregate computes a metrics snapshot for a complete batch. An empty batch
// yields zero counts and means.
func Aggregate(records []models.EnrichedRecord, now time.Time) *models.PortfolioMetrics {
	b := newBatch(records, now)

	metrics := &models.PortfolioMetrics{
		GeneratedAt:      now,
		PortfolioSummary: summarize(b),
		SectorAnalysis:   analyzeSectors(b),
		RiskMetrics:      riskMetrics(b),
		ValuationMetrics: valuation(b),
		RiskAnalysis: models.RiskAnalysis{
			Credit:      creditRisk(b),
			Operational: operationalRisk(b),
			Market:      marketRisk(b),
			Regulatory:  regulatoryRisk(b),
			Strategic:   strategicRisk(b),
		},
		MarketAnalysis: models.MarketAnalysis{
			IndustryTrends:       industryTrends(b),
			CompetitiveLandscape: competitiveLandscape(b),
			Opportunities:        opportunities(b),
			MacroFactors:         macroFactors(b),
		},
		Compliance: compliance(b),
	}
	metrics.KeyConcerns = KeyConcerns(records, metrics.Compliance.OverallComplianceScore)
	return metrics
}

func summarize(b *batch) models.PortfolioSummary {
	summary := models.PortfolioSummary{
		TotalCompanies:         b.size(),
		AverageCompanyAge:      Mean(b.knownAges()),
		AverageGovernanceScore: Mean(b.governanceScores()),
		SectorDiversification:  len(b.sectors),
		SectorDistribution:     make(map[string]int, len(b.sectors)),
		StateDistribution:      make(map[string]int),
		CityDistribution:       make(map[string]int),
	}

	var authorized, paid float64
	for _, r := range b.records {
		if v := enrichment.AuthorizedCapital(r.CompanyRecord); v != nil {
			authorized += *v
		}
		if v := enrichment.PaidUpCapital(r.CompanyRecord); v != nil {
			paid += *v
		}
		if models.IsKnown(r.State) {
			summary.StateDistribution[r.State]++
		}
		if models.IsKnown(r.City) {
			summary.CityDistribution[r.City]++
		}
	}
	summary.TotalAuthorizedCapitalCr = currency.ToCrore(authorized)
	summary.TotalPaidUpCapitalCr = currency.ToCrore(paid)

	for sector, count := range b.sectors {
		summary.SectorDistribution[sector] = count
	}
	if len(b.order) > 0 {
		summary.LargestSector = b.order[0]
		summary.LargestSectorCount = b.sectors[b.order[0]]
	}
	return summary
}

func analyzeSectors(b *batch) map[string]models.SectorMetrics {
	analysis := make(map[string]models.SectorMetrics, len(b.sectors))
	for sector, count := range b.sectors {
		var authorized, paid, governance, ages []float64
		for _, r := range b.inSector(sector) {
			if v := enrichment.AuthorizedCapital(r.CompanyRecord); v != nil && *v != 0 {
				authorized = append(authorized, *v)
			}
			if v := enrichment.PaidUpCapital(r.CompanyRecord); v != nil && *v != 0 {
				paid = append(paid, *v)
			}
			governance = append(governance, r.GovernanceScore)
			if r.CompanyAgeYears != nil && *r.CompanyAgeYears > 0 {
				ages = append(ages, float64(*r.CompanyAgeYears))
			}
		}

		m := models.SectorMetrics{
			CompanyCount:           count,
			PercentageOfPortfolio:  percent(count, b.size()),
			AvgAuthorizedCapitalCr: currency.ToCrore(Mean(authorized)),
			AvgPaidUpCapitalCr:     currency.ToCrore(Mean(paid)),
			AvgGovernanceScore:     Mean(governance),
			AvgCompanyAge:          Mean(ages),
		}
		if len(authorized) > 0 && len(paid) > 0 {
			m.CapitalEfficiency = Mean(paid) / Mean(authorized)
		}
		analysis[sector] = m
	}
	return analysis
}

func riskMetrics(b *batch) models.RiskMetrics {
	if b.size() == 0 {
		return models.RiskMetrics{}
	}

	counts := make([]float64, 0, len(b.sectors))
	for _, sector := range b.order {
		counts = append(counts, float64(b.sectors[sector]))
	}
	hhi := HHI(Shares(counts))

	governance := b.governanceScores()
	risk := models.RiskMetrics{
		SectorConcentrationRisk: hhi,
		DiversificationRatio:    1 - hhi,
		PortfolioGovernanceRisk: 100 - Mean(governance),
		GovernanceVolatility:    Stddev(governance),
	}

	if ages := b.knownAges(); len(ages) > 0 {
		if mean := Mean(ages); mean > 0 {
			risk.MaturityRisk = Stddev(ages) / mean
		}
	}

	chargeRisks := make([]float64, 0, b.size())
	for _, r := range b.records {
		ri := r.RiskIndicators
		if ri.TotalCharges > 0 {
			chargeRisks = append(chargeRisks, float64(ri.ActiveCharges)/float64(ri.TotalCharges))
		} else {
			chargeRisks = append(chargeRisks, 0)
		}
	}
	risk.PortfolioChargeRisk = Mean(chargeRisks)

	overall := risk.SectorConcentrationRisk*30 +
		risk.PortfolioGovernanceRisk*0.4 +
		risk.MaturityRisk*20 +
		risk.PortfolioChargeRisk*50
	if overall > 100 {
		overall = 100
	}
	risk.OverallRiskScore = overall
	return risk
}

func valuation(b *batch) models.ValuationMetrics {
	var equity, assets float64
	for _, r := range b.records {
		paid := enrichment.PaidUpCapital(r.CompanyRecord)
		if paid == nil || *paid == 0 {
			continue
		}
		equity += *paid
		assets += *paid + enrichment.TotalChargeAmount(r.Charges)
	}

	v := models.ValuationMetrics{
		TotalPortfolioEquityCr: currency.ToCrore(equity),
		TotalPortfolioAssetsCr: currency.ToCrore(assets),
		SectorPremiums:         make(map[string]float64),
	}
	if equity > 0 {
		v.PortfolioLeverage = assets / equity
	}

	for _, sector := range benchmarkSectors {
		members := b.inSector(sector)
		if len(members) == 0 {
			continue
		}
		scores := make([]float64, len(members))
		for i, r := range members {
			scores[i] = r.GovernanceScore
		}
		v.SectorPremiums[sector] = (Mean(scores) - 50) / 50
	}
	return v
}
