package interfaces

import (
	"context"
	"time"
)

// PageMetrics are the growth signals sampled between scroll cycles
type PageMetrics struct {
	Height int64 `json:"height"` // document scroll height in pixels
	Rows   int   `json:"rows"`   // listing rows and cards currently in the DOM
}

// Browser is the scripted-browser collaborator used for JavaScript-rendered pages.
// Implementations hold a single page; calls are not safe for concurrent use.
type Browser interface {
	// Navigate loads the URL and waits for the document to be ready
	Navigate(ctx context.Context, url string) error

	// WaitFor tries the selectors in order, each for up to timeout.
	// Returns false without error when none appeared in time.
	WaitFor(ctx context.Context, selectors []string, timeout time.Duration) (bool, error)

	// ScrollToBottom scrolls the page to trigger lazy-loaded content
	ScrollToBottom(ctx context.Context) error

	// PageMetrics samples the page height and table row count
	PageMetrics(ctx context.Context) (PageMetrics, error)

	// CurrentMarkup returns the rendered document HTML
	CurrentMarkup(ctx context.Context) (string, error)

	// Close releases the page and its browser process
	Close() error
}
