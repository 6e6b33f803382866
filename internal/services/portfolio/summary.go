package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/corpscan/internal/models"
)

const (
	highRiskActiveCharges  = 2
	highRiskGovernance     = 40
	complianceConcernBelow = 70
	concentrationConcern   = 40
	summarySectors         = 5
)

// KeyConcerns lists the portfolio-level red flags
func KeyConcerns(records []models.EnrichedRecord, overallCompliance float64) []string {
	concerns := []string{}
	if len(records) == 0 {
		return concerns
	}

	highRisk := 0
	for _, r := range records {
		if r.RiskIndicators.ActiveCharges > highRiskActiveCharges || r.GovernanceScore < highRiskGovernance {
			highRisk++
		}
	}
	if highRisk > 0 {
		concerns = append(concerns, fmt.Sprintf("%d companies with high risk indicators", highRisk))
	}

	if overallCompliance < complianceConcernBelow {
		concerns = append(concerns, fmt.Sprintf("Overall compliance score below 70%% (%.1f%%)", overallCompliance))
	}

	b := newBatch(records, time.Time{})
	if top := percent(b.sectors[b.order[0]], b.size()); top > concentrationConcern {
		concerns = append(concerns, fmt.Sprintf("High sector concentration (%.1f%% in one sector)", top))
	}
	return concerns
}

// SummaryText renders the plain-text portfolio summary handed to the text generator
func SummaryText(m *models.PortfolioMetrics) string {
	var sb strings.Builder
	ps := m.PortfolioSummary
	credit := m.RiskAnalysis.Credit

	sb.WriteString("PORTFOLIO ANALYSIS SUMMARY:\n\n")
	sb.WriteString("Portfolio Overview:\n")
	fmt.Fprintf(&sb, "- Total Companies: %d\n", ps.TotalCompanies)
	fmt.Fprintf(&sb, "- Total Authorized Capital: ₹%.1f Crores\n", ps.TotalAuthorizedCapitalCr)
	fmt.Fprintf(&sb, "- Total Paid-up Capital: ₹%.1f Crores\n", ps.TotalPaidUpCapitalCr)
	fmt.Fprintf(&sb, "- Average Company Age: %.1f years\n", ps.AverageCompanyAge)
	fmt.Fprintf(&sb, "- Average Governance Score: %.1f/100\n\n", ps.AverageGovernanceScore)

	sb.WriteString("Sector Distribution:\n")
	for _, line := range SectorLines(ps, summarySectors) {
		fmt.Fprintf(&sb, "- %s\n", line)
	}

	sb.WriteString("\nRisk Profile:\n")
	fmt.Fprintf(&sb, "- Portfolio Credit Score: %.1f/100\n", credit.PortfolioCreditScore)
	fmt.Fprintf(&sb, "- Average Debt-to-Equity: %.2f\n", credit.AverageDebtEquityRatio)
	fmt.Fprintf(&sb, "- Charge Closure Rate: %.2f\n\n", credit.AverageChargeClosureRate)

	sb.WriteString("Compliance Status:\n")
	fmt.Fprintf(&sb, "- Overall Compliance Score: %.1f/100\n", m.Compliance.OverallComplianceScore)
	fmt.Fprintf(&sb, "- ROC Compliance Rate: %.1f%%\n\n", m.Compliance.ROC.ComplianceRate)

	sb.WriteString("Key Concerns:\n")
	if len(m.KeyConcerns) == 0 {
		sb.WriteString("- No major concerns identified\n")
	}
	for _, concern := range m.KeyConcerns {
		fmt.Fprintf(&sb, "- %s\n", concern)
	}
	return sb.String()
}

// SectorLines formats the largest sectors as "Technology: 4 companies (40.0%)"
func SectorLines(ps models.PortfolioSummary, limit int) []string {
	sectors := make([]string, 0, len(ps.SectorDistribution))
	for sector := range ps.SectorDistribution {
		sectors = append(sectors, sector)
	}
	sort.Slice(sectors, func(i, j int) bool {
		ci, cj := ps.SectorDistribution[sectors[i]], ps.SectorDistribution[sectors[j]]
		if ci != cj {
			return ci > cj
		}
		return sectors[i] < sectors[j]
	})
	if limit > 0 && len(sectors) > limit {
		sectors = sectors[:limit]
	}

	lines := make([]string, 0, len(sectors))
	for _, sector := range sectors {
		count := ps.SectorDistribution[sector]
		lines = append(lines, fmt.Sprintf("%s: %d companies (%.1f%%)", sectorTitle(sector), count, percent(count, ps.TotalCompanies)))
	}
	return lines
}

// sectorTitle turns "real_estate" into "Real Estate"
func sectorTitle(sector string) string {
	words := strings.Fields(strings.ReplaceAll(sector, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
