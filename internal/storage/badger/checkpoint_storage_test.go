package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
	"github.com/ternarybob/corpscan/internal/models"
)

func newTestStorage(t *testing.T) *CheckpointStorage {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "checkpoints")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewCheckpointStorage(db, logger)
}

func TestCheckpointStorage_SaveLoad(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	age := 7
	checkpoint := &models.Checkpoint{
		RunID:     "run-a",
		Completed: []string{"https://example.test/company/a", "https://example.test/company/b"},
		Records: []models.EnrichedRecord{{
			CompanyRecord:          models.CompanyRecord{Name: "Acme", BasicInfo: map[string]string{"CIN": "U1"}},
			IndustryClassification: "technology",
			CompanyAgeYears:        &age,
			FinancialRatios:        map[string]float64{models.RatioDirectorEfficiency: 0.5},
		}},
		Stats: models.RunStats{RunID: "run-a", Attempted: 2, Succeeded: 1, Failed: 1,
			FailuresByKind: map[models.FailureKind]int{models.FailureParse: 1}},
	}
	require.NoError(t, storage.Save(ctx, checkpoint))

	loaded, err := storage.Load(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Completed, loaded.Completed)
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, "Acme", loaded.Records[0].Name)
	require.NotNil(t, loaded.Records[0].CompanyAgeYears)
	assert.Equal(t, 7, *loaded.Records[0].CompanyAgeYears)
	assert.Equal(t, 1, loaded.Stats.FailuresByKind[models.FailureParse])
	assert.False(t, loaded.CreatedAt.IsZero())
	assert.True(t, loaded.CompletedSet()["https://example.test/company/b"])
}

func TestCheckpointStorage_SaveKeepsCreatedAt(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	first := &models.Checkpoint{RunID: "run-a"}
	require.NoError(t, storage.Save(ctx, first))
	created := first.CreatedAt

	time.Sleep(5 * time.Millisecond)
	second := &models.Checkpoint{RunID: "run-a", Completed: []string{"x"}, Final: true}
	require.NoError(t, storage.Save(ctx, second))

	loaded, err := storage.Load(ctx, "run-a")
	require.NoError(t, err)
	assert.True(t, loaded.CreatedAt.Equal(created))
	assert.True(t, loaded.UpdatedAt.After(created))
	assert.True(t, loaded.Final)
	assert.Equal(t, []string{"x"}, loaded.Completed)
}

func TestCheckpointStorage_NotFound(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	_, err := storage.Load(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrCheckpointNotFound)

	_, err = storage.Latest(ctx)
	assert.ErrorIs(t, err, interfaces.ErrCheckpointNotFound)

	assert.NoError(t, storage.Delete(ctx, "missing"))
}

func TestCheckpointStorage_LatestAndList(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, storage.Save(ctx, &models.Checkpoint{RunID: id}))
		time.Sleep(5 * time.Millisecond)
	}

	latest, err := storage.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-3", latest.RunID)

	all, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"run-3", "run-2", "run-1"}, []string{all[0].RunID, all[1].RunID, all[2].RunID})

	require.NoError(t, storage.Delete(ctx, "run-3"))
	latest, err = storage.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)
}

func TestCheckpointStorage_RequiresRunID(t *testing.T) {
	storage := newTestStorage(t)
	assert.Error(t, storage.Save(context.Background(), &models.Checkpoint{}))
}

func TestNewBadgerDB_Reset(t *testing.T) {
	logger := arbor.NewLogger()
	path := filepath.Join(t.TempDir(), "db")

	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	storage := NewCheckpointStorage(db, logger)
	require.NoError(t, storage.Save(context.Background(), &models.Checkpoint{RunID: "keep"}))
	require.NoError(t, db.Close())

	db, err = NewBadgerDB(logger, &common.BadgerConfig{Path: path, ResetOnStartup: true})
	require.NoError(t, err)
	defer db.Close()

	_, err = NewCheckpointStorage(db, logger).Load(context.Background(), "keep")
	assert.ErrorIs(t, err, interfaces.ErrCheckpointNotFound)
}
