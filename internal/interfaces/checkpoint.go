package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/corpscan/internal/models"
)

// ErrCheckpointNotFound is returned when no checkpoint exists for a run
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CheckpointStore persists in-progress batch state so an interrupted run can resume
type CheckpointStore interface {
	// Save replaces the checkpoint for checkpoint.RunID
	Save(ctx context.Context, checkpoint *models.Checkpoint) error

	// Load returns the checkpoint for a run or ErrCheckpointNotFound
	Load(ctx context.Context, runID string) (*models.Checkpoint, error)

	// Latest returns the most recently updated checkpoint or ErrCheckpointNotFound
	Latest(ctx context.Context) (*models.Checkpoint, error)

	// List returns checkpoints newest first
	List(ctx context.Context) ([]*models.Checkpoint, error)

	// Delete removes a run's checkpoint; deleting a missing run is not an error
	Delete(ctx context.Context, runID string) error
}
