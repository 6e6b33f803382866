package models

import "time"

// Checkpoint is a resumable snapshot of an in-progress batch
type Checkpoint struct {
	RunID     string           `json:"run_id" badgerhold:"key"`
	Completed []string         `json:"completed"` // locators already processed, successful or not
	Records   []EnrichedRecord `json:"records"`
	Stats     RunStats         `json:"stats"`
	Final     bool             `json:"final"` // batch finished or was flushed on cancellation
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CompletedSet returns the processed locators as a lookup set
func (c *Checkpoint) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(c.Completed))
	for _, locator := range c.Completed {
		set[locator] = true
	}
	return set
}
