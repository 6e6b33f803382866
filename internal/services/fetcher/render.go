package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
)

// stableCycles is how many scroll cycles without growth end scrolling
const stableCycles = 2

// BrowserFactory starts a browser for the renderer
type BrowserFactory func() (interfaces.Browser, error)

// RenderOptions tune the rendered path
type RenderOptions struct {
	NavigationTimeout time.Duration
	WaitSelectors     []string
	WaitTimeout       time.Duration
	Scroll            bool
	MaxScrolls        int
	ScrollPause       time.Duration
	MaxAttempts       int
}

// RenderOptionsFromConfig maps browser and fetcher settings onto render options
func RenderOptionsFromConfig(browser common.BrowserConfig, fetcher common.FetcherConfig) RenderOptions {
	return RenderOptions{
		NavigationTimeout: browser.NavigationTimeout,
		WaitSelectors:     browser.WaitSelectors,
		WaitTimeout:       browser.WaitTimeout,
		Scroll:            browser.Scroll,
		MaxScrolls:        browser.MaxScrolls,
		ScrollPause:       browser.ScrollPause,
		MaxAttempts:       fetcher.MaxAttempts,
	}
}

// Renderer fetches pages through a scripted browser. The browser is started
// on first use and pages are rendered one at a time.
type Renderer struct {
	factory BrowserFactory
	options RenderOptions
	policy  BackoffPolicy
	logger  arbor.ILogger

	mu      sync.Mutex
	browser interfaces.Browser
}

var _ interfaces.PageFetcher = (*Renderer)(nil)

// NewRenderer creates a rendering fetcher
func NewRenderer(factory BrowserFactory, options RenderOptions, policy BackoffPolicy, logger arbor.ILogger) *Renderer {
	return &Renderer{
		factory: factory,
		options: options,
		policy:  policy,
		logger:  logger,
	}
}

// Fetch renders the page and returns the final markup
func (r *Renderer) Fetch(ctx context.Context, locator string) models.FetchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := runAttempts(ctx, r.logger, r.policy, locator, r.options.MaxAttempts, func(ctx context.Context) (string, int, error) {
		browser, err := r.ensureBrowser()
		if err != nil {
			return "", 0, err
		}
		markup, err := r.render(ctx, browser, locator)
		if err != nil {
			// a broken tab is replaced on the next attempt
			r.resetBrowser()
			return "", 0, err
		}
		return markup, 0, nil
	})

	r.logger.Debug().
		Str("url", locator).
		Str("status", string(result.Status)).
		Int("attempts", result.Attempts).
		Dur("duration", time.Since(start)).
		Msg("Render complete")

	return result
}

func (r *Renderer) render(ctx context.Context, browser interfaces.Browser, locator string) (string, error) {
	navCtx := ctx
	if r.options.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, r.options.NavigationTimeout)
		defer cancel()
	}
	if err := browser.Navigate(navCtx, locator); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	if len(r.options.WaitSelectors) > 0 {
		found, err := browser.WaitFor(ctx, r.options.WaitSelectors, r.options.WaitTimeout)
		if err != nil {
			return "", err
		}
		if !found {
			r.logger.Debug().
				Str("url", locator).
				Str("selectors", strings.Join(r.options.WaitSelectors, ", ")).
				Msg("No wait selector appeared, taking markup as is")
		}
	}

	if r.options.Scroll {
		if err := r.scroll(ctx, browser, locator); err != nil {
			return "", err
		}
	}

	markup, err := browser.CurrentMarkup(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read markup: %w", err)
	}
	if strings.TrimSpace(markup) == "" {
		return "", ErrEmptyBody
	}
	return markup, nil
}

// scroll repeats scroll-to-bottom until neither height nor row count grows
// for stableCycles consecutive cycles, or MaxScrolls is reached
func (r *Renderer) scroll(ctx context.Context, browser interfaces.Browser, locator string) error {
	previous, err := browser.PageMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to sample page: %w", err)
	}

	stable := 0
	cycles := 0
	for cycles < r.options.MaxScrolls && stable < stableCycles {
		cycles++
		if err := browser.ScrollToBottom(ctx); err != nil {
			return fmt.Errorf("scroll failed: %w", err)
		}
		if err := sleep(ctx, r.options.ScrollPause); err != nil {
			return err
		}

		current, err := browser.PageMetrics(ctx)
		if err != nil {
			return fmt.Errorf("failed to sample page: %w", err)
		}
		if current.Height > previous.Height || current.Rows > previous.Rows {
			stable = 0
		} else {
			stable++
		}
		previous = current
	}

	r.logger.Debug().
		Str("url", locator).
		Int("scrolls", cycles).
		Int("rows", previous.Rows).
		Msg("Scrolling finished")
	return nil
}

func (r *Renderer) ensureBrowser() (interfaces.Browser, error) {
	if r.browser != nil {
		return r.browser, nil
	}
	browser, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	r.browser = browser
	return browser, nil
}

func (r *Renderer) resetBrowser() {
	if r.browser == nil {
		return
	}
	if err := r.browser.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to close browser")
	}
	r.browser = nil
}

// Close releases the browser, if one was started
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetBrowser()
	return nil
}
