package interfaces

import (
	"context"

	"github.com/ternarybob/corpscan/internal/models"
)

// PageFetcher retrieves a page with its own retry budget.
// A non-OK result is terminal; callers skip or abort, they never retry.
type PageFetcher interface {
	Fetch(ctx context.Context, locator string) models.FetchResult
}
