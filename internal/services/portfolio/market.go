package portfolio

import (
	"sort"

	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/enrichment"
)

// Market structure by sector HHI over paid-capital shares (in percent points)
const (
	StructureCompetitive            = "competitive"
	StructureModeratelyConcentrated = "moderately_concentrated"
	StructureHighlyConcentrated     = "highly_concentrated"
)

const (
	trendStartYear   = 2000
	recentTrendYears = 5
	maxTopPlayers    = 3
	maxHighDebtNames = 10
	highDebtRatio    = 0.5
	gapThreshold     = 0.7
)

// expectedDistribution is the benchmark sector mix used to spot gaps
var expectedDistribution = map[string]float64{
	"technology":         0.25,
	"financial":          0.15,
	"healthcare":         0.12,
	"manufacturing":      0.20,
	"retail":             0.10,
	"energy":             0.08,
	"real_estate":        0.05,
	"telecommunications": 0.05,
}

var (
	growthSectors     = map[string]bool{"technology": true, "healthcare": true, "financial": true}
	regulatedSectors  = []string{"financial", "healthcare", "energy", "telecommunications"}
	cyclicalSectors   = []string{"manufacturing", "real_estate", "retail"}
	disruptionSectors = []string{"manufacturing", "retail", "financial"}
)

func industryTrends(b *batch) models.IndustryTrends {
	trends := models.IndustryTrends{
		IncorporationsByYear: make(map[int]int),
		SectorTrends:         make(map[string]models.SectorTrend),
	}

	bySector := make(map[string]map[int]int)
	for _, r := range b.records {
		if r.IncorporationYear == nil {
			continue
		}
		year := *r.IncorporationYear
		if year < trendStartYear || year > b.now.Year() {
			continue
		}
		trends.IncorporationsByYear[year]++
		if bySector[r.IndustryClassification] == nil {
			bySector[r.IndustryClassification] = make(map[int]int)
		}
		bySector[r.IndustryClassification][year]++
	}

	cutoff := b.now.Year() - recentTrendYears
	recentYears, olderYears := 0, 0
	for year, count := range trends.IncorporationsByYear {
		if year >= cutoff {
			trends.RecentIncorporations += count
			recentYears++
		} else {
			trends.HistoricalIncorporations += count
			olderYears++
		}
	}
	if trends.HistoricalIncorporations > 0 && recentYears > 0 {
		recentRate := float64(trends.RecentIncorporations) / float64(recentYears)
		olderRate := float64(trends.HistoricalIncorporations) / float64(olderYears)
		trends.GrowthRate5Yr = (recentRate - olderRate) / olderRate * 100
	}

	for sector, years := range bySector {
		if len(years) <= 2 {
			continue
		}
		keys := make([]int, 0, len(years))
		for y := range years {
			keys = append(keys, y)
		}
		sort.Ints(keys)

		xs := make([]float64, len(keys))
		ys := make([]float64, len(keys))
		for i, y := range keys {
			xs[i] = float64(y)
			ys[i] = float64(years[y])
		}
		slope, r2 := LinearRegression(xs, ys)
		direction := "decreasing"
		if slope > 0 {
			direction = "increasing"
		}
		trends.SectorTrends[sector] = models.SectorTrend{Slope: slope, Strength: r2, Direction: direction}
	}
	return trends
}

// marketStructure classifies an HHI computed over percent shares
func marketStructure(hhi float64) string {
	switch {
	case hhi < 1500:
		return StructureCompetitive
	case hhi < 2500:
		return StructureModeratelyConcentrated
	default:
		return StructureHighlyConcentrated
	}
}

func competitiveLandscape(b *batch) map[string]models.SectorCompetition {
	type player struct {
		name    string
		capital float64
	}

	bySector := make(map[string][]player)
	for _, r := range b.records {
		paid := enrichment.PaidUpCapital(r.CompanyRecord)
		if paid == nil || *paid <= 0 {
			continue
		}
		bySector[r.IndustryClassification] = append(bySector[r.IndustryClassification], player{name: r.Name, capital: *paid})
	}

	landscape := make(map[string]models.SectorCompetition)
	for sector, players := range bySector {
		if len(players) < 2 {
			continue
		}

		total := 0.0
		for _, p := range players {
			total += p.capital
		}
		shares := make([]float64, len(players))
		for i, p := range players {
			shares[i] = p.capital / total * 100
		}

		sort.SliceStable(players, func(i, j int) bool { return players[i].capital > players[j].capital })
		top := players
		if len(top) > maxTopPlayers {
			top = top[:maxTopPlayers]
		}
		topShares := make([]models.MarketShare, len(top))
		for i, p := range top {
			topShares[i] = models.MarketShare{Name: p.name, MarketShare: p.capital / total * 100}
		}

		hhi := HHI(shares)
		landscape[sector] = models.SectorCompetition{
			MarketStructure: marketStructure(hhi),
			HHI:             hhi,
			NumberOfPlayers: len(players),
			TopPlayers:      topShares,
		}
	}
	return landscape
}

func opportunities(b *batch) models.MarketOpportunities {
	opp := models.MarketOpportunities{
		SectorGaps:              make(map[string]models.SectorGap),
		HighGrowthPotential:     []models.OpportunityCompany{},
		CapitalEfficientTargets: []models.OpportunityCompany{},
	}
	if b.size() == 0 {
		return opp
	}

	for sector, expected := range expectedDistribution {
		actual := float64(b.sectors[sector]) / float64(b.size())
		if actual < expected*gapThreshold {
			opp.SectorGaps[sector] = models.SectorGap{
				CurrentRepresentation:  actual * 100,
				ExpectedRepresentation: expected * 100,
				OpportunityGap:         (expected - actual) * 100,
			}
		}
	}

	for _, r := range b.records {
		age := r.AgeOr(100)
		if age < 15 && growthSectors[r.IndustryClassification] && r.GovernanceScore > 70 {
			opp.HighGrowthPotential = append(opp.HighGrowthPotential, models.OpportunityCompany{
				Name:            r.Name,
				Sector:          r.IndustryClassification,
				Age:             age,
				GovernanceScore: r.GovernanceScore,
			})
		}

		utilization := r.Ratio(models.RatioCapitalUtilization)
		if utilization > 0.8 && r.GovernanceScore > 75 {
			opp.CapitalEfficientTargets = append(opp.CapitalEfficientTargets, models.OpportunityCompany{
				Name:               r.Name,
				Sector:             r.IndustryClassification,
				GovernanceScore:    r.GovernanceScore,
				CapitalUtilization: utilization,
			})
		}
	}
	return opp
}

func macroFactors(b *batch) models.MacroFactors {
	macro := models.MacroFactors{HighDebtCompanies: []string{}}
	if b.size() == 0 {
		return macro
	}

	highDebt := 0
	for _, r := range b.records {
		if r.Ratio(models.RatioDebtToEquity) > highDebtRatio {
			highDebt++
			if len(macro.HighDebtCompanies) < maxHighDebtNames {
				macro.HighDebtCompanies = append(macro.HighDebtCompanies, r.Name)
			}
		}
	}

	macro.InterestRateSensitivity = percent(highDebt, b.size())
	macro.RegulatoryExposure = percent(b.countIn(regulatedSectors...), b.size())
	macro.EconomicCycleSensitivity = percent(b.countIn(cyclicalSectors...), b.size())
	macro.TechnologyDisruptionRisk = percent(b.countIn(disruptionSectors...), b.size())
	return macro
}
