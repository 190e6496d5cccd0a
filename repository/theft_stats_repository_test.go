package repository

import (
	"context"
	"testing"

	"heist/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTheftStatsRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	testutil.SeedAccount(t, testDB.DB, 1, "alice", 1000, 0)
	testutil.SeedAccount(t, testDB.DB, 2, "bob", 1000, 0)
	testutil.SeedAccount(t, testDB.DB, 3, "carol", 1000, 0)
	repo := NewTheftStatsRepository(testDB.DB)
	ctx := context.Background()

	stats, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, stats)

	require.NoError(t, repo.Increment(ctx, 1, 1, 0, 0))
	require.NoError(t, repo.Increment(ctx, 1, 1, 0, 0))
	require.NoError(t, repo.Increment(ctx, 1, 0, 1, 0))
	require.NoError(t, repo.Increment(ctx, 2, 0, 0, 2))
	require.NoError(t, repo.Increment(ctx, 3, 1, 0, 0))

	stats, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Victimized)

	top, err := repo.TopThieves(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2, "actors without a success are not ranked")
	assert.Equal(t, int64(1), top[0].ActorID)
	assert.Equal(t, "alice", top[0].Username)
	assert.Equal(t, int64(3), top[1].ActorID)
}
