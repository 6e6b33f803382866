package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
)

const (
	scrollScript  = `window.scrollTo(0, document.body.scrollHeight)`
	metricsScript = `({
		height: document.body ? document.body.scrollHeight : 0,
		rows: document.querySelectorAll('table tbody tr, div[class*="col-lg-4"], [data-company]').length
	})`
	startupTimeout = 30 * time.Second
)

// ChromeBrowser drives one headless Chrome tab through chromedp
type ChromeBrowser struct {
	ctx             context.Context
	allocatorCancel context.CancelFunc
	browserCancel   context.CancelFunc
	logger          arbor.ILogger
}

var _ interfaces.Browser = (*ChromeBrowser)(nil)

// NewChromeBrowser starts a browser and verifies it can navigate.
// Extra headers are sent with every request the tab makes.
func NewChromeBrowser(config common.BrowserConfig, userAgent string, headers map[string]string, logger arbor.ILogger) (*ChromeBrowser, error) {
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, startupTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, network.Enable(), chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	if len(headers) > 0 {
		extra := make(network.Headers, len(headers))
		for key, value := range headers {
			extra[key] = value
		}
		if err := chromedp.Run(testCtx, network.SetExtraHTTPHeaders(extra)); err != nil {
			browserCancel()
			allocatorCancel()
			return nil, fmt.Errorf("failed to set browser headers: %w", err)
		}
	}

	logger.Debug().
		Dur("startup_time", time.Since(startTime)).
		Bool("headless", config.Headless).
		Msg("Browser started")

	return &ChromeBrowser{
		ctx:             browserCtx,
		allocatorCancel: allocatorCancel,
		browserCancel:   browserCancel,
		logger:          logger,
	}, nil
}

// tab derives a context bound to the browser tab that is also cancelled with ctx
func (b *ChromeBrowser) tab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancel := context.WithCancel(b.ctx)
	stop := context.AfterFunc(ctx, cancel)
	if deadline, ok := ctx.Deadline(); ok {
		var timeoutCancel context.CancelFunc
		tabCtx, timeoutCancel = context.WithDeadline(tabCtx, deadline)
		return tabCtx, func() {
			timeoutCancel()
			stop()
			cancel()
		}
	}
	return tabCtx, func() {
		stop()
		cancel()
	}
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	tabCtx, cancel := b.tab(ctx)
	defer cancel()
	return chromedp.Run(tabCtx, chromedp.Navigate(url))
}

// WaitFor tries each selector in order with its own timeout and reports whether any appeared
func (b *ChromeBrowser) WaitFor(ctx context.Context, selectors []string, timeout time.Duration) (bool, error) {
	for _, selector := range selectors {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		waitCtx, cancel := b.tab(ctx)
		waitCtx, timeoutCancel := context.WithTimeout(waitCtx, timeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
		timeoutCancel()
		cancel()

		if err == nil {
			b.logger.Debug().Str("selector", selector).Msg("Wait selector present")
			return true, nil
		}
	}
	return false, ctx.Err()
}

func (b *ChromeBrowser) ScrollToBottom(ctx context.Context) error {
	tabCtx, cancel := b.tab(ctx)
	defer cancel()
	return chromedp.Run(tabCtx, chromedp.Evaluate(scrollScript, nil))
}

func (b *ChromeBrowser) PageMetrics(ctx context.Context) (interfaces.PageMetrics, error) {
	tabCtx, cancel := b.tab(ctx)
	defer cancel()

	var metrics interfaces.PageMetrics
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(metricsScript, &metrics)); err != nil {
		return interfaces.PageMetrics{}, err
	}
	return metrics, nil
}

func (b *ChromeBrowser) CurrentMarkup(ctx context.Context) (string, error) {
	tabCtx, cancel := b.tab(ctx)
	defer cancel()

	var markup string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return markup, nil
}

// Close shuts down the tab and the browser process
func (b *ChromeBrowser) Close() error {
	b.browserCancel()
	b.allocatorCancel()
	return nil
}
