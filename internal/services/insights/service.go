// -----------------------------------------------------------------------
// Insights - best-effort portfolio commentary from a text generator
// -----------------------------------------------------------------------

package insights

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/ternarybob/corpscan/internal/services/portfolio"
)

const systemInstruction = "You are a financial analyst reviewing a portfolio of Indian companies. " +
	"Base every statement on the figures provided and keep answers concise and actionable."

// section binds one prompt to the Insights field it fills
type section struct {
	name   string
	prompt string
	assign func(*models.Insights, string)
}

var sections = []section{
	{
		name: "investment_recommendations",
		prompt: `Review this company portfolio and give investment recommendations.

%s
Cover:
1. The three strongest investment recommendations and why
2. Sectors where exposure should grow or shrink
3. Risk-adjusted return opportunities
4. Portfolio optimization steps`,
		assign: func(i *models.Insights, s string) { i.InvestmentRecommendations = s },
	},
	{
		name: "risk_assessment",
		prompt: `Assess the risk profile of this portfolio.

%s
Cover:
1. Primary risk factors and their likely impact
2. Mitigation strategies
3. Best and worst case scenarios
4. Suggested risk limits and controls
5. Early warning indicators to monitor`,
		assign: func(i *models.Insights, s string) { i.RiskAssessment = s },
	},
	{
		name: "market_opportunities",
		prompt: `Identify market opportunities for this portfolio over the next 12 to 24 months.

%s
Cover:
1. Market trends that favour these holdings
2. Undervalued sectors with growth potential
3. Consolidation and acquisition candidates
4. Technology disruption openings
5. Environmental, social and governance themes`,
		assign: func(i *models.Insights, s string) { i.MarketOpportunities = s },
	},
	{
		name: "strategic_recommendations",
		prompt: `Give strategic recommendations for this portfolio.

%s
Cover:
1. Rebalancing strategy
2. Due diligence priorities for high-potential companies
3. Exit options for underperforming holdings
4. Value creation through active ownership
5. Positioning over the next three to five years`,
		assign: func(i *models.Insights, s string) { i.StrategicRecommendations = s },
	},
}

// Service asks the text generator for the four insight sections
type Service struct {
	generator interfaces.TextGenerator
	logger    arbor.ILogger
}

// NewService creates an insights service. A nil generator yields empty insights.
func NewService(generator interfaces.TextGenerator, logger arbor.ILogger) *Service {
	return &Service{generator: generator, logger: logger}
}

// Generate fills each insight section independently. A failed section is
// logged and left empty; Generate itself never fails.
func (s *Service) Generate(ctx context.Context, metrics *models.PortfolioMetrics) models.Insights {
	var result models.Insights
	if s.generator == nil || metrics == nil || metrics.PortfolioSummary.TotalCompanies == 0 {
		return result
	}

	summary := portfolio.SummaryText(metrics)
	for _, sec := range sections {
		if ctx.Err() != nil {
			s.logger.Warn().Err(ctx.Err()).Msg("Insight generation cancelled")
			break
		}

		text, err := s.generator.Generate(ctx, fmt.Sprintf(sec.prompt, summary))
		if err != nil {
			s.logger.Warn().
				Str("provider", s.generator.Name()).
				Str("section", sec.name).
				Err(err).
				Msg("Insight section failed, leaving it empty")
			continue
		}
		sec.assign(&result, text)
	}

	s.logger.Info().
		Str("provider", s.generator.Name()).
		Bool("empty", result.IsEmpty()).
		Msg("Portfolio insights generated")
	return result
}
