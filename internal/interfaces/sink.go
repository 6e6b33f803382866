// -----------------------------------------------------------------------
// Sink - export/report collaborator boundary
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/corpscan/internal/models"
)

// Batch is the finalized output of one run handed to sinks
type Batch struct {
	RunID       string                   `json:"run_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Partial     bool                     `json:"partial"` // flushed on cancellation
	Records     []models.EnrichedRecord  `json:"records"`
	Metrics     *models.PortfolioMetrics `json:"portfolio_metrics,omitempty"`
	Insights    models.Insights          `json:"insights"`
	Stats       models.RunStats          `json:"run_stats"`
}

// Sink persists a batch. Implementations must not mutate the batch.
type Sink interface {
	// Name identifies the sink in logs
	Name() string

	// Write persists records and metrics
	Write(ctx context.Context, batch Batch) error
}
