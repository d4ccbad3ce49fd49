package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tilemud/internal/config"
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/storage"
)

func boltConfig(t *testing.T) config.Config {
	return config.Config{Storage: config.StorageConfig{
		Driver:   config.StorageBolt,
		BoltPath: filepath.Join(t.TempDir(), "orphans.db"),
	}}
}

func TestOpen_Bolt(t *testing.T) {
	ledger, closeFn, err := storage.Open(context.Background(), boltConfig(t))
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	rec := operation.OrphanRecord{ID: uuid.New(), ItemTypeID: 200, Amount: 2, OccurredAt: time.Now()}
	require.NoError(t, ledger.RecordOrphan(ctx, rec))
	got, err := ledger.Unresolved(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestOpen_NotFoundIsDriverIndependent(t *testing.T) {
	ledger, closeFn, err := storage.Open(context.Background(), boltConfig(t))
	require.NoError(t, err)
	defer closeFn()

	assert.ErrorIs(t, ledger.Resolve(context.Background(), uuid.New()), storage.ErrOrphanNotFound)
	_, err = ledger.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrOrphanNotFound)
}

func TestOpen_None(t *testing.T) {
	_, _, err := storage.Open(context.Background(), config.Config{Storage: config.StorageConfig{Driver: config.StorageNone}})
	assert.ErrorIs(t, err, storage.ErrNoStorage)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := storage.Open(context.Background(), config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}
