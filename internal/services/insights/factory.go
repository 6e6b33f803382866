package insights

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
)

// NewTextGenerator creates the configured text-generation provider.
// Returns nil without error when the provider is "none".
func NewTextGenerator(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.TextGenerator, error) {
	retry := NewRetryConfig(cfg.LLM.MaxRetries)

	logger.Debug().Str("provider", string(cfg.LLM.DefaultProvider)).Msg("Initializing text generator")

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderNone, "":
		return nil, nil
	case common.LLMProviderGemini:
		return NewGeminiGenerator(ctx, cfg.Gemini, retry, logger)
	case common.LLMProviderClaude:
		return NewClaudeGenerator(cfg.Claude, retry, logger)
	default:
		return nil, fmt.Errorf("unsupported text generation provider: %s", cfg.LLM.DefaultProvider)
	}
}
