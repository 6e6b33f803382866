package enrichment

import (
	"strings"
	"time"

	"github.com/ternarybob/corpscan/internal/models"
)

// Governance score components
const (
	minBoardSize       = 3
	maxBoardSize       = 8
	boardSizePoints    = 20.0
	independencePoints = 25.0
	updatedPoints      = 15.0
	chargePoints       = 20.0
	completenessPoints = 20.0
	maxGovernanceScore = 100.0
)

// industryRule maps a sector to the keywords that select it
type industryRule struct {
	Sector   string
	Keywords []string
}

// industryRules are evaluated in order; the first match wins
var industryRules = []industryRule{
	{"technology", []string{"tech", "software", "digital", "it", "computer", "data", "ai", "ml"}},
	{"financial", []string{"financial", "bank", "insurance", "investment", "credit", "loan"}},
	{"healthcare", []string{"health", "medical", "pharma", "hospital", "diagnostic", "biotech"}},
	{"manufacturing", []string{"manufacturing", "industrial", "factory", "production", "steel"}},
	{"retail", []string{"retail", "shopping", "ecommerce", "marketplace", "store"}},
	{"energy", []string{"energy", "oil", "gas", "renewable", "solar", "power"}},
	{"real_estate", []string{"real estate", "property", "construction", "builder"}},
	{"telecommunications", []string{"telecom", "communication", "network", "mobile"}},
}

// SectorDiversified is the classification when no keyword matches
const SectorDiversified = "diversified"

// Sectors returns the classification vocabulary in priority order
func Sectors() []string {
	sectors := make([]string, 0, len(industryRules)+1)
	for _, rule := range industryRules {
		sectors = append(sectors, rule.Sector)
	}
	return append(sectors, SectorDiversified)
}

// ClassifyIndustry matches keywords as case-insensitive substrings of name and description
func ClassifyIndustry(name, description string) string {
	text := strings.ToLower(name + " " + description)
	for _, rule := range industryRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return rule.Sector
			}
		}
	}
	return SectorDiversified
}

// GovernanceScore is an additive 0-100 proxy for board and compliance quality
func GovernanceScore(record models.CompanyRecord) float64 {
	score := 0.0
	directors := record.Directors

	if len(directors) >= minBoardSize && len(directors) <= maxBoardSize {
		score += boardSizePoints
	}

	if len(directors) > 0 {
		surnames := make(map[string]bool)
		for _, d := range directors {
			fields := strings.Fields(d.Name)
			if len(fields) > 0 {
				surnames[strings.ToLower(fields[len(fields)-1])] = true
			}
		}
		score += float64(len(surnames)) / float64(len(directors)) * independencePoints
	}

	if strings.TrimSpace(record.LastUpdated) != "" {
		score += updatedPoints
	}

	if len(record.Charges) == 0 {
		score += chargePoints
	} else {
		closed := 0
		for _, c := range record.Charges {
			if c.Status == models.ChargeClosed {
				closed++
			}
		}
		score += float64(closed) / float64(len(record.Charges)) * chargePoints
	}

	filled := 0
	for _, v := range record.BasicInfo {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	total := len(record.BasicInfo)
	if total < 1 {
		total = 1
	}
	score += float64(filled) / float64(total) * completenessPoints

	if score < 0 {
		return 0
	}
	if score > maxGovernanceScore {
		return maxGovernanceScore
	}
	return score
}

// ExtractRiskIndicators derives charge, director and filing-staleness signals
func ExtractRiskIndicators(record models.CompanyRecord, now time.Time) models.RiskIndicators {
	indicators := models.RiskIndicators{
		TotalCharges:        len(record.Charges),
		ComplianceStaleness: Staleness(record.LastUpdated),
	}

	for _, c := range record.Charges {
		if c.Status == models.ChargeClosed {
			indicators.ClosedCharges++
		} else {
			indicators.ActiveCharges++
		}
	}

	var years []int
	for _, d := range record.Directors {
		if year, ok := firstYear(d.AppointmentDateRaw); ok {
			years = append(years, year)
		}
	}
	if len(years) > 0 {
		distinct := make(map[int]bool)
		recent := 0
		for _, y := range years {
			distinct[y] = true
			if y >= now.Year()-recentDirectorYears {
				recent++
			}
		}
		turnover := float64(len(distinct)) / float64(len(years))
		indicators.DirectorTurnoverRisk = &turnover
		indicators.RecentDirectorChanges = &recent
	}

	return indicators
}

// Staleness classifies a last-updated string by its filing marker
func Staleness(lastUpdated string) string {
	switch {
	case strings.TrimSpace(lastUpdated) == "":
		return models.StalenessUnknown
	case HasFilingMarker(lastUpdated):
		return models.StalenessRecent
	default:
		return models.StalenessOutdated
	}
}

// HasFilingMarker reports a last-updated string carrying an "as on" or
// "as of" date
func HasFilingMarker(lastUpdated string) bool {
	lower := strings.ToLower(lastUpdated)
	return strings.Contains(lower, "as on") || strings.Contains(lower, "as of")
}
