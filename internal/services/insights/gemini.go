package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiGenerator generates text with the Google Gemini API
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	retry       RetryConfig
	logger      arbor.ILogger
}

var _ interfaces.TextGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini-backed generator. An API key is required.
func NewGeminiGenerator(ctx context.Context, config common.GeminiConfig, retry RetryConfig, logger arbor.ILogger) (*GeminiGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
	}

	timeout, err := parseTimeout(config.Timeout)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
		timeout:     timeout,
		retry:       retry,
		logger:      logger,
	}, nil
}

func (g *GeminiGenerator) Name() string {
	return string(common.LLMProviderGemini)
}

// Generate sends a single-turn prompt with the analyst system instruction
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	return withRetry(ctx, g.retry, g.logger, g.Name(), func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(prompt), config)
		if err != nil {
			return "", err
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return "", fmt.Errorf("empty response from Gemini API")
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("empty text in Gemini response")
		}
		return text, nil
	})
}

func parseTimeout(value string) (time.Duration, error) {
	if value == "" {
		return 2 * time.Minute, nil
	}
	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout duration '%s': %w", value, err)
	}
	return timeout, nil
}
