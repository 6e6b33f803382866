package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
)

const defaultClaudeMaxTokens = 2048

// ClaudeGenerator generates text with the Anthropic Messages API
type ClaudeGenerator struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	retry       RetryConfig
	logger      arbor.ILogger
}

var _ interfaces.TextGenerator = (*ClaudeGenerator)(nil)

// NewClaudeGenerator creates a Claude-backed generator. An API key is required.
func NewClaudeGenerator(config common.ClaudeConfig, retry RetryConfig, logger arbor.ILogger) (*ClaudeGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key)")
	}

	timeout, err := parseTimeout(config.Timeout)
	if err != nil {
		return nil, err
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	return &ClaudeGenerator{
		client:      anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		model:       config.Model,
		maxTokens:   maxTokens,
		temperature: config.Temperature,
		timeout:     timeout,
		retry:       retry,
		logger:      logger,
	}, nil
}

func (g *ClaudeGenerator) Name() string {
	return string(common.LLMProviderClaude)
}

func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{{Text: systemInstruction}},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(float64(g.temperature))
	}

	return withRetry(ctx, g.retry, g.logger, g.Name(), func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.Messages.New(callCtx, params)
		if err != nil {
			return "", err
		}

		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		if text.Len() == 0 {
			return "", fmt.Errorf("empty response from Claude API")
		}
		return text.String(), nil
	})
}
