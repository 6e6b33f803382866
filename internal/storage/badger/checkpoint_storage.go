package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CheckpointStorage implements interfaces.CheckpointStore on badgerhold
type CheckpointStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.CheckpointStore = (*CheckpointStorage)(nil)

func NewCheckpointStorage(db *BadgerDB, logger arbor.ILogger) *CheckpointStorage {
	return &CheckpointStorage{db: db, logger: logger}
}

// Save upserts the checkpoint, keeping the original CreatedAt
func (s *CheckpointStorage) Save(ctx context.Context, checkpoint *models.Checkpoint) error {
	if checkpoint == nil || checkpoint.RunID == "" {
		return fmt.Errorf("checkpoint requires a run id")
	}

	now := time.Now()
	var existing models.Checkpoint
	switch err := s.db.Store().Get(checkpoint.RunID, &existing); {
	case err == nil:
		checkpoint.CreatedAt = existing.CreatedAt
	case errors.Is(err, badgerhold.ErrNotFound):
		if checkpoint.CreatedAt.IsZero() {
			checkpoint.CreatedAt = now
		}
	default:
		return fmt.Errorf("failed to read checkpoint %s: %w", checkpoint.RunID, err)
	}
	checkpoint.UpdatedAt = now

	if err := s.db.Store().Upsert(checkpoint.RunID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", checkpoint.RunID, err)
	}

	s.logger.Debug().
		Str("run_id", checkpoint.RunID).
		Int("completed", len(checkpoint.Completed)).
		Int("records", len(checkpoint.Records)).
		Bool("final", checkpoint.Final).
		Msg("Checkpoint saved")
	return nil
}

func (s *CheckpointStorage) Load(ctx context.Context, runID string) (*models.Checkpoint, error) {
	var checkpoint models.Checkpoint
	err := s.db.Store().Get(runID, &checkpoint)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", runID, err)
	}
	return &checkpoint, nil
}

func (s *CheckpointStorage) Latest(ctx context.Context) (*models.Checkpoint, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, interfaces.ErrCheckpointNotFound
	}
	return all[0], nil
}

// List returns every checkpoint ordered by UpdatedAt, newest first
func (s *CheckpointStorage) List(ctx context.Context) ([]*models.Checkpoint, error) {
	var checkpoints []models.Checkpoint
	if err := s.db.Store().Find(&checkpoints, nil); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		return checkpoints[i].UpdatedAt.After(checkpoints[j].UpdatedAt)
	})

	result := make([]*models.Checkpoint, len(checkpoints))
	for i := range checkpoints {
		result[i] = &checkpoints[i]
	}
	return result, nil
}

func (s *CheckpointStorage) Delete(ctx context.Context, runID string) error {
	err := s.db.Store().Delete(runID, &models.Checkpoint{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete checkpoint %s: %w", runID, err)
	}
	return nil
}
