package portfolio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/enrichment"
)

const (
	minDirectors     = 2
	maxDirectors     = 15
	minDINLength     = 6
	maxIssues        = 10
	minChargeFields  = 3
	transparencyHigh = 80
	transparencyLow  = 50
)

// transparencyFields are the basic-info entries expected on a registry page
var transparencyFields = []string{"Authorised Capital", "Paid up capital", "Company Category", "Company Sub Category"}

// ROC compliance categories
const (
	ComplianceExcellent = "excellent"
	ComplianceGood      = "good"
	ComplianceFair      = "fair"
	CompliancePoor      = "poor"
)

func compliance(b *batch) models.ComplianceMetrics {
	if b.size() == 0 {
		return models.ComplianceMetrics{Directors: models.DirectorCompliance{Issues: []string{}}}
	}

	c := models.ComplianceMetrics{
		ROC:          rocCompliance(b),
		Directors:    directorCompliance(b),
		Charges:      chargeCompliance(b),
		Transparency: transparencyCompliance(b),
	}
	c.OverallComplianceScore = Mean([]float64{
		c.ROC.ComplianceScore,
		c.Directors.ComplianceScore,
		c.Charges.ComplianceScore,
		c.Transparency.ComplianceScore,
	})
	return c
}

func complianceCategory(rate float64) string {
	switch {
	case rate >= 80:
		return ComplianceExcellent
	case rate >= 60:
		return ComplianceGood
	case rate >= 40:
		return ComplianceFair
	default:
		return CompliancePoor
	}
}

// rocCompliance counts filings carrying a filing marker within the current or previous year
func rocCompliance(b *batch) models.ROCCompliance {
	current := strconv.Itoa(b.now.Year())
	previous := strconv.Itoa(b.now.Year() - 1)

	recent := 0
	for _, r := range b.records {
		if !enrichment.HasFilingMarker(r.LastUpdated) {
			continue
		}
		if strings.Contains(r.LastUpdated, current) || strings.Contains(r.LastUpdated, previous) {
			recent++
		}
	}

	rate := percent(recent, b.size())
	return models.ROCCompliance{
		RecentUpdatesCount: recent,
		ComplianceRate:     rate,
		ComplianceScore:    rate,
		Category:           complianceCategory(rate),
	}
}

func directorCompliance(b *batch) models.DirectorCompliance {
	compliant := 0
	issues := []string{}
	addIssue := func(format string, args ...any) {
		if len(issues) < maxIssues {
			issues = append(issues, fmt.Sprintf(format, args...))
		}
	}

	for _, r := range b.records {
		n := len(r.Directors)
		switch {
		case n < minDirectors:
			addIssue("%s: Insufficient directors (%d)", r.Name, n)
			continue
		case n > maxDirectors:
			addIssue("%s: Too many directors (%d)", r.Name, n)
			continue
		}

		withID := 0
		for _, d := range r.Directors {
			if len(strings.TrimSpace(d.ID)) >= minDINLength {
				withID++
			}
		}
		if withID == n {
			compliant++
		} else {
			addIssue("%s: Missing DIN for some directors", r.Name)
		}
	}

	rate := percent(compliant, b.size())
	return models.DirectorCompliance{
		CompliantCompanies: compliant,
		ComplianceRate:     rate,
		ComplianceScore:    rate,
		Issues:             issues,
	}
}

// chargeDocumented requires at least three of id, creation date, assets and holder
func chargeDocumented(c models.Charge) bool {
	return countNonEmpty(c.ChargeID, c.CreationDateRaw, c.AssetDescription, c.HolderName) >= minChargeFields
}

func chargeCompliance(b *batch) models.ChargeCompliance {
	cc := models.ChargeCompliance{}
	documented := 0
	for _, r := range b.records {
		if len(r.Charges) == 0 {
			continue
		}
		cc.CompaniesWithCharges++
		cc.TotalCharges += len(r.Charges)
		for _, c := range r.Charges {
			if chargeDocumented(c) {
				documented++
			}
		}
	}

	cc.DocumentationRate = 100
	if cc.TotalCharges > 0 {
		cc.DocumentationRate = percent(documented, cc.TotalCharges)
	}
	cc.ComplianceScore = cc.DocumentationRate
	return cc
}

// TransparencyScore blends basic-info, director, contact and charge completeness (30/25/20/25)
func TransparencyScore(r models.EnrichedRecord) float64 {
	score := 0.0

	available := 0
	for _, field := range transparencyFields {
		if strings.TrimSpace(r.BasicInfo[field]) != "" {
			available++
		}
	}
	score += float64(available) / float64(len(transparencyFields)) * 30

	if len(r.Directors) == 0 {
		score += 25
	} else {
		complete := 0
		for _, d := range r.Directors {
			if countNonEmpty(d.Name, d.ID, d.Designation) == 3 {
				complete++
			}
		}
		score += float64(complete) / float64(len(r.Directors)) * 25
	}

	if len(r.ContactInfo) > 0 {
		score += 20
	}

	if len(r.Charges) == 0 {
		score += 25
	} else {
		documented := 0
		for _, c := range r.Charges {
			hasAmount := c.Amount != nil || strings.TrimSpace(c.AmountRaw) != ""
			if hasAmount && strings.TrimSpace(c.HolderName) != "" {
				documented++
			}
		}
		score += float64(documented) / float64(len(r.Charges)) * 25
	}
	return score
}

func transparencyCompliance(b *batch) models.TransparencyCompliance {
	scores := make([]float64, 0, b.size())
	tc := models.TransparencyCompliance{}
	for _, r := range b.records {
		s := TransparencyScore(r)
		scores = append(scores, s)
		if s >= transparencyHigh {
			tc.CompaniesAbove80++
		}
		if s < transparencyLow {
			tc.CompaniesBelow50++
		}
	}
	tc.AverageTransparencyScore = Mean(scores)
	tc.ComplianceScore = tc.AverageTransparencyScore
	return tc
}

func countNonEmpty(values ...string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
