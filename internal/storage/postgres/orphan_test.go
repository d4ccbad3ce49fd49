package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/storage/postgres"
	"github.com/cory-johannsen/tilemud/internal/testutil"
)

func orphan(typeID uint16, amount int, at time.Time) operation.OrphanRecord {
	return operation.OrphanRecord{
		ID:          uuid.New(),
		ItemTypeID:  typeID,
		Amount:      amount,
		Description: "gold coin",
		Source:      "tile (10, 10, 7)",
		Destination: "container slot 2 of 70000",
		RequestorID: 70000,
		OccurredAt:  at.UTC().Truncate(time.Microsecond),
	}
}

func TestOrphanRepository_RecordAndList(t *testing.T) {
	repo := postgres.NewOrphanRepository(testutil.NewPool(t))
	ctx := context.Background()
	t0 := time.Now()

	later := orphan(200, 3, t0.Add(time.Minute))
	earlier := orphan(201, 1, t0)
	require.NoError(t, repo.RecordOrphan(ctx, later))
	require.NoError(t, repo.RecordOrphan(ctx, earlier))

	got, err := repo.Unresolved(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, earlier.ID, got[0].ID)
	assert.True(t, later.OccurredAt.Equal(got[1].OccurredAt))
	got[1].OccurredAt = later.OccurredAt
	assert.Equal(t, later, got[1])
}

func TestOrphanRepository_AssignsMissingID(t *testing.T) {
	repo := postgres.NewOrphanRepository(testutil.NewPool(t))
	ctx := context.Background()

	rec := orphan(200, 1, time.Now())
	rec.ID = uuid.Nil
	require.NoError(t, repo.RecordOrphan(ctx, rec))

	got, err := repo.Unresolved(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
}

func TestOrphanRepository_Resolve(t *testing.T) {
	repo := postgres.NewOrphanRepository(testutil.NewPool(t))
	ctx := context.Background()

	rec := orphan(200, 5, time.Now())
	require.NoError(t, repo.RecordOrphan(ctx, rec))
	require.NoError(t, repo.Resolve(ctx, rec.ID))

	got, err := repo.Unresolved(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, repo.Resolve(ctx, rec.ID), postgres.ErrOrphanNotFound)
	kept, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, kept.Amount)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, postgres.ErrOrphanNotFound)
}

func TestOrphanRepository_RejectsEmptyAmount(t *testing.T) {
	repo := postgres.NewOrphanRepository(testutil.NewPool(t))
	assert.Error(t, repo.RecordOrphan(context.Background(), orphan(200, 0, time.Now())))
}

func TestPool_CheckSchema(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	ctx := context.Background()

	assert.ErrorIs(t, pc.Pool.CheckSchema(ctx), postgres.ErrSchemaMissing)

	pc.ApplyMigrations(t)
	assert.NoError(t, pc.Pool.CheckSchema(ctx))
}
