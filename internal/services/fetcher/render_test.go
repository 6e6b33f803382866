package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
)

// fakeBrowser replays a scripted sequence of page metrics
type fakeBrowser struct {
	metrics     []interfaces.PageMetrics
	sample      int
	scrolls     int
	present     map[string]bool
	waited      []string
	navigateErr error
	markup      string
	closed      bool
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	return b.navigateErr
}

func (b *fakeBrowser) WaitFor(ctx context.Context, selectors []string, timeout time.Duration) (bool, error) {
	for _, selector := range selectors {
		b.waited = append(b.waited, selector)
		if b.present[selector] {
			return true, nil
		}
	}
	return false, nil
}

func (b *fakeBrowser) ScrollToBottom(ctx context.Context) error {
	b.scrolls++
	return nil
}

func (b *fakeBrowser) PageMetrics(ctx context.Context) (interfaces.PageMetrics, error) {
	i := b.sample
	if i >= len(b.metrics) {
		i = len(b.metrics) - 1
	}
	b.sample++
	return b.metrics[i], nil
}

func (b *fakeBrowser) CurrentMarkup(ctx context.Context) (string, error) {
	return b.markup, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

func newTestRenderer(browser *fakeBrowser, options RenderOptions) *Renderer {
	factory := func() (interfaces.Browser, error) { return browser, nil }
	return NewRenderer(factory, options, BackoffPolicy{Unit: time.Millisecond, BlockedUnit: time.Millisecond}, arbor.NewLogger())
}

func TestRenderer_ScrollStopsAfterStableCycles(t *testing.T) {
	browser := &fakeBrowser{
		metrics: []interfaces.PageMetrics{
			{Height: 1000, Rows: 10}, // initial
			{Height: 2000, Rows: 20},
			{Height: 3000, Rows: 30},
			{Height: 3000, Rows: 30},
			{Height: 3000, Rows: 30},
			{Height: 4000, Rows: 40}, // never reached
		},
		markup: "<html><body><table></table></body></html>",
	}
	renderer := newTestRenderer(browser, RenderOptions{Scroll: true, MaxScrolls: 20, MaxAttempts: 1})

	result := renderer.Fetch(context.Background(), "https://startups.example/list")

	require.True(t, result.IsOK())
	assert.Equal(t, 4, browser.scrolls)
	assert.Contains(t, result.Body, "<table>")
}

func TestRenderer_ScrollCappedByMaxScrolls(t *testing.T) {
	growing := make([]interfaces.PageMetrics, 0, 20)
	for i := 0; i < 20; i++ {
		growing = append(growing, interfaces.PageMetrics{Height: int64(1000 * (i + 1)), Rows: i})
	}
	browser := &fakeBrowser{metrics: growing, markup: "<html></html>"}
	renderer := newTestRenderer(browser, RenderOptions{Scroll: true, MaxScrolls: 5, MaxAttempts: 1})

	result := renderer.Fetch(context.Background(), "https://startups.example/list")

	require.True(t, result.IsOK())
	assert.Equal(t, 5, browser.scrolls)
}

func TestRenderer_RowGrowthAloneKeepsScrolling(t *testing.T) {
	browser := &fakeBrowser{
		metrics: []interfaces.PageMetrics{
			{Height: 1000, Rows: 10},
			{Height: 1000, Rows: 15},
			{Height: 1000, Rows: 15},
			{Height: 1000, Rows: 15},
		},
		markup: "<html></html>",
	}
	renderer := newTestRenderer(browser, RenderOptions{Scroll: true, MaxScrolls: 20, MaxAttempts: 1})

	require.True(t, renderer.Fetch(context.Background(), "https://startups.example/list").IsOK())
	assert.Equal(t, 3, browser.scrolls)
}

func TestRenderer_WaitSelectorsInOrder(t *testing.T) {
	browser := &fakeBrowser{
		present: map[string]bool{"table": true},
		markup:  "<html></html>",
	}
	renderer := newTestRenderer(browser, RenderOptions{
		WaitSelectors: []string{"table tbody tr", "table", "h1"},
		WaitTimeout:   time.Second,
		MaxAttempts:   1,
	})

	require.True(t, renderer.Fetch(context.Background(), "https://startups.example/list").IsOK())
	assert.Equal(t, []string{"table tbody tr", "table"}, browser.waited)
	assert.Zero(t, browser.scrolls)
}

func TestRenderer_NoSelectorStillReturnsMarkup(t *testing.T) {
	browser := &fakeBrowser{markup: "<html><body>plain</body></html>"}
	renderer := newTestRenderer(browser, RenderOptions{WaitSelectors: []string{"table"}, MaxAttempts: 1})

	result := renderer.Fetch(context.Background(), "https://startups.example/list")
	require.True(t, result.IsOK())
	assert.Contains(t, result.Body, "plain")
}

func TestRenderer_NavigationFailureRetriesAndResets(t *testing.T) {
	browser := &fakeBrowser{navigateErr: errors.New("net::ERR_CONNECTION_RESET")}
	starts := 0
	factory := func() (interfaces.Browser, error) {
		starts++
		return browser, nil
	}
	renderer := NewRenderer(factory, RenderOptions{MaxAttempts: 2}, BackoffPolicy{Unit: time.Millisecond}, arbor.NewLogger())

	result := renderer.Fetch(context.Background(), "https://startups.example/list")

	assert.Equal(t, models.FetchNetworkError, result.Status)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, starts)
	assert.True(t, browser.closed)
}

func TestRenderer_EmptyMarkupIsFailure(t *testing.T) {
	browser := &fakeBrowser{markup: "   "}
	renderer := newTestRenderer(browser, RenderOptions{MaxAttempts: 1})

	result := renderer.Fetch(context.Background(), "https://startups.example/list")
	assert.False(t, result.IsOK())
	assert.ErrorIs(t, result.Err, ErrEmptyBody)
}
