package insights

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryConfig defines retry behavior for provider rate limits
type RetryConfig struct {
	// MaxRetries is the number of retries after the first call
	MaxRetries int

	// InitialBackoff is the base wait for a rate-limited call
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait
	MaxBackoff time.Duration

	// BackoffMultiplier is applied per retry
	BackoffMultiplier float64

	// TransientUnit is the linear wait unit for non rate-limit errors
	TransientUnit time.Duration
}

const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 30 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 1.5
	DefaultTransientUnit     = 2 * time.Second
)

// NewRetryConfig returns the default retry config with the given retry count.
// A negative count falls back to the default.
func NewRetryConfig(maxRetries int) RetryConfig {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return RetryConfig{
		MaxRetries:        maxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		TransientUnit:     DefaultTransientUnit,
	}
}

// IsRateLimitError matches 429 and quota errors from either provider.
// The SDKs do not expose a stable typed error for this.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota")
}

var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses a provider-suggested delay such as
// "Please retry in 45.38s". Returns 0 when none is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Backoff returns the wait before retry number attempt (0-based)
func (c RetryConfig) Backoff(attempt int, err error) time.Duration {
	if !IsRateLimitError(err) {
		return time.Duration(attempt+1) * c.TransientUnit
	}

	base := c.InitialBackoff
	if apiDelay := ExtractRetryDelay(err); apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// withRetry runs call until it succeeds, retries are exhausted or ctx ends
func withRetry(ctx context.Context, config RetryConfig, logger arbor.ILogger, provider string, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		text, err := call()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		backoff := config.Backoff(attempt, err)
		logger.Warn().
			Str("provider", provider).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying text generation")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", lastErr
}
