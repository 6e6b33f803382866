// -----------------------------------------------------------------------
// Fetcher - HTTP retrieval with retry, backoff and bot-detection handling
// -----------------------------------------------------------------------

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
	"golang.org/x/time/rate"
)

// attemptFunc performs one attempt and returns the body and HTTP status (0 when unknown)
type attemptFunc func(ctx context.Context) (body string, statusCode int, err error)

// runAttempts drives the retry loop shared by the HTTP and rendered paths.
// Cancellation aborts immediately and nothing partial is returned.
func runAttempts(ctx context.Context, logger arbor.ILogger, policy BackoffPolicy, locator string, maxAttempts int, fn attemptFunc) models.FetchResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	result := models.FetchResult{URL: locator}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			return cancelled(result, err)
		}

		body, statusCode, err := fn(ctx)
		result.StatusCode = statusCode
		if err == nil {
			result.Status = models.FetchOK
			result.Body = body
			result.Err = nil
			return result
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(result, ctxErr)
		}

		blocked := errors.Is(err, ErrBlocked)
		result.Err = err
		result.Status = classify(statusCode, err)

		if attempt == maxAttempts {
			break
		}

		backoff := policy.Delay(attempt, blocked)
		logger.Debug().
			Str("url", locator).
			Int("attempt", attempt).
			Int("status_code", statusCode).
			Bool("blocked", blocked).
			Err(err).
			Dur("backoff", backoff).
			Msg("Retrying after backoff")

		if err := sleep(ctx, backoff); err != nil {
			return cancelled(result, err)
		}
	}

	logger.Warn().
		Str("url", locator).
		Int("max_attempts", maxAttempts).
		Int("status_code", result.StatusCode).
		Str("status", string(result.Status)).
		Err(result.Err).
		Msg("All fetch attempts exhausted")

	return result
}

func cancelled(result models.FetchResult, err error) models.FetchResult {
	result.Status = models.FetchNetworkError
	result.Body = ""
	result.Err = err
	return result
}

// classify maps an attempt failure onto a terminal fetch status
func classify(statusCode int, err error) models.FetchStatus {
	switch {
	case errors.Is(err, ErrBlocked):
		return models.FetchBlocked
	case statusCode > 0:
		return models.FetchHTTPError
	case isTimeoutError(err):
		return models.FetchTimeout
	default:
		return models.FetchNetworkError
	}
}

// Client fetches pages over HTTP. A single rate limiter paces every request it makes.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     common.FetcherConfig
	policy     BackoffPolicy
	logger     arbor.ILogger
}

var _ interfaces.PageFetcher = (*Client)(nil)

// NewClient creates an HTTP fetcher from configuration
func NewClient(config common.FetcherConfig, logger arbor.ILogger) *Client {
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiter:    rate.NewLimiter(limit, burst),
		config:     config,
		policy:     PolicyFromConfig(config),
		logger:     logger,
	}
}

// PolicyFromConfig builds the backoff policy for fetcher settings
func PolicyFromConfig(config common.FetcherConfig) BackoffPolicy {
	return BackoffPolicy{
		Unit:        config.BackoffUnit,
		BlockedUnit: config.BlockedBackoffUnit,
		Jitter:      config.Jitter,
	}
}

// Fetch retrieves a page with the configured attempt budget and base headers
func (c *Client) Fetch(ctx context.Context, locator string) models.FetchResult {
	return c.FetchWith(ctx, locator, c.config.MaxAttempts, nil)
}

// FetchWith retrieves a page, merging headers over the configured base set.
// A non-OK result is terminal.
func (c *Client) FetchWith(ctx context.Context, locator string, maxAttempts int, headers map[string]string) models.FetchResult {
	start := time.Now()
	result := runAttempts(ctx, c.logger, c.policy, locator, maxAttempts, func(ctx context.Context) (string, int, error) {
		return c.do(ctx, locator, headers)
	})

	c.logger.Debug().
		Str("url", locator).
		Str("status", string(result.Status)).
		Int("attempts", result.Attempts).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result
}

func (c *Client) do(ctx context.Context, locator string, headers map[string]string) (string, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", 0, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	limit := c.config.MaxBodySize
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp.StatusCode, statusError(resp.StatusCode, locator)
	}
	if len(body) == 0 {
		return "", resp.StatusCode, ErrEmptyBody
	}
	return string(body), resp.StatusCode, nil
}

// userAgent returns the configured agent, or a random pool entry when rotation is on
func (c *Client) userAgent() string {
	if c.config.UserAgentRotation && len(c.config.UserAgents) > 0 {
		return c.config.UserAgents[rand.Intn(len(c.config.UserAgents))]
	}
	return c.config.UserAgent
}
