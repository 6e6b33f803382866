package sink

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/portfolio"
)

const reportCompanyLimit = 50

// RenderReport builds the markdown portfolio report shared by the markdown,
// HTML and PDF sinks
func RenderReport(batch interfaces.Batch) string {
	var sb strings.Builder

	sb.WriteString("# Portfolio Report\n\n")
	fmt.Fprintf(&sb, "Run `%s` generated %s.", batch.RunID, batch.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	if batch.Partial {
		sb.WriteString(" **Partial batch: the run was interrupted.**")
	}
	sb.WriteString("\n\n")

	writeRunStats(&sb, batch.Stats)

	if m := batch.Metrics; m != nil {
		writeSummary(&sb, m)
		writeRisk(&sb, m)
		writeCompliance(&sb, m)

		sb.WriteString("## Key Concerns\n\n")
		if len(m.KeyConcerns) == 0 {
			sb.WriteString("No major concerns identified.\n\n")
		}
		for _, c := range m.KeyConcerns {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
		if len(m.KeyConcerns) > 0 {
			sb.WriteString("\n")
		}
	}

	writeInsights(&sb, batch.Insights)
	writeCompanies(&sb, batch.Records)
	return sb.String()
}

func writeRunStats(sb *strings.Builder, s models.RunStats) {
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Attempted | Succeeded | Failed | Skipped |\n|---|---|---|---|\n")
	fmt.Fprintf(sb, "| %d | %d | %d | %d |\n\n", s.Attempted, s.Succeeded, s.Failed, s.Skipped)

	if len(s.FailuresByKind) == 0 {
		return
	}
	kinds := make([]string, 0, len(s.FailuresByKind))
	for kind := range s.FailuresByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(sb, "- %s failures: %d\n", kind, s.FailuresByKind[models.FailureKind(kind)])
	}
	sb.WriteString("\n")
}

func writeSummary(sb *strings.Builder, m *models.PortfolioMetrics) {
	ps := m.PortfolioSummary
	sb.WriteString("## Portfolio Summary\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(sb, "| Companies | %d |\n", ps.TotalCompanies)
	fmt.Fprintf(sb, "| Authorized capital | ₹%.2f Cr |\n", ps.TotalAuthorizedCapitalCr)
	fmt.Fprintf(sb, "| Paid-up capital | ₹%.2f Cr |\n", ps.TotalPaidUpCapitalCr)
	fmt.Fprintf(sb, "| Average age | %.1f years |\n", ps.AverageCompanyAge)
	fmt.Fprintf(sb, "| Average governance | %.1f / 100 |\n", ps.AverageGovernanceScore)
	fmt.Fprintf(sb, "| Sectors | %d |\n\n", ps.SectorDiversification)

	if len(ps.SectorDistribution) == 0 {
		return
	}
	sb.WriteString("### Sectors\n\n")
	for _, line := range portfolio.SectorLines(ps, 0) {
		fmt.Fprintf(sb, "- %s\n", line)
	}
	sb.WriteString("\n")
}

func writeRisk(sb *strings.Builder, m *models.PortfolioMetrics) {
	ra := m.RiskAnalysis
	sb.WriteString("## Risk\n\n")
	sb.WriteString("| Lens | Score |\n|---|---|\n")
	fmt.Fprintf(sb, "| Credit score | %.1f |\n", ra.Credit.PortfolioCreditScore)
	fmt.Fprintf(sb, "| Operational risk | %.1f |\n", ra.Operational.OperationalRiskScore)
	fmt.Fprintf(sb, "| Market risk | %.1f |\n", ra.Market.MarketRiskScore)
	fmt.Fprintf(sb, "| Regulatory risk | %.1f |\n", ra.Regulatory.RegulatoryRiskScore)
	fmt.Fprintf(sb, "| Strategic risk | %.1f |\n", ra.Strategic.StrategicRiskScore)
	fmt.Fprintf(sb, "| Overall risk | %.1f |\n", m.RiskMetrics.OverallRiskScore)
	fmt.Fprintf(sb, "| Sector HHI | %.3f |\n\n", m.RiskMetrics.SectorConcentrationRisk)
}

func writeCompliance(sb *strings.Builder, m *models.PortfolioMetrics) {
	c := m.Compliance
	sb.WriteString("## Compliance\n\n")
	sb.WriteString("| Area | Score |\n|---|---|\n")
	fmt.Fprintf(sb, "| ROC filings (%s) | %.1f |\n", c.ROC.Category, c.ROC.ComplianceScore)
	fmt.Fprintf(sb, "| Directors | %.1f |\n", c.Directors.ComplianceScore)
	fmt.Fprintf(sb, "| Charges | %.1f |\n", c.Charges.ComplianceScore)
	fmt.Fprintf(sb, "| Transparency | %.1f |\n", c.Transparency.ComplianceScore)
	fmt.Fprintf(sb, "| **Overall** | **%.1f** |\n\n", c.OverallComplianceScore)
}

func writeInsights(sb *strings.Builder, in models.Insights) {
	if in.IsEmpty() {
		return
	}
	sb.WriteString("## Insights\n\n")
	for _, part := range []struct{ title, body string }{
		{"Investment Recommendations", in.InvestmentRecommendations},
		{"Risk Assessment", in.RiskAssessment},
		{"Market Opportunities", in.MarketOpportunities},
		{"Strategic Recommendations", in.StrategicRecommendations},
	} {
		if part.body == "" {
			continue
		}
		fmt.Fprintf(sb, "### %s\n\n%s\n\n", part.title, strings.TrimSpace(part.body))
	}
}

func writeCompanies(sb *strings.Builder, records []models.EnrichedRecord) {
	if len(records) == 0 {
		return
	}

	ranked := make([]models.EnrichedRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].GovernanceScore > ranked[j].GovernanceScore })
	if len(ranked) > reportCompanyLimit {
		ranked = ranked[:reportCompanyLimit]
	}

	fmt.Fprintf(sb, "## Companies (top %d by governance)\n\n", len(ranked))
	sb.WriteString("| Company | Sector | State | Governance | Age | D/E |\n|---|---|---|---|---|---|\n")
	for _, r := range ranked {
		age := "-"
		if r.CompanyAgeYears != nil {
			age = fmt.Sprintf("%d", *r.CompanyAgeYears)
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %.1f | %s | %.2f |\n",
			cell(r.Name), cell(r.IndustryClassification), cell(r.State), r.GovernanceScore, age, r.Ratio(models.RatioDebtToEquity))
	}
	sb.WriteString("\n")
}

// cell escapes a value for a markdown table
func cell(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	if value == "" {
		return "-"
	}
	return strings.ReplaceAll(value, "|", `\|`)
}
