package repository

import (
	"context"
	"testing"

	"heist/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordReplyRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewKeywordReplyRepository(testDB.DB)
	ctx := context.Background()
	chat := int64(-100123)

	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestKeywordReply("hello", "global hi", nil)))
	require.NoError(t, repo.Upsert(ctx, testutil.CreateTestKeywordReply("hello", "chat hi", &chat)))

	t.Run("scoped and global are separate", func(t *testing.T) {
		scoped, err := repo.Find(ctx, "hello", &chat)
		require.NoError(t, err)
		require.NotNil(t, scoped)
		assert.Equal(t, "chat hi", scoped.Response)

		global, err := repo.Find(ctx, "hello", nil)
		require.NoError(t, err)
		require.NotNil(t, global)
		assert.Equal(t, "global hi", global.Response)
		assert.True(t, global.IsGlobal())
	})

	t.Run("upsert replaces within a scope", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, testutil.CreateTestKeywordReply("hello", "updated", nil)))

		global, err := repo.Find(ctx, "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, "updated", global.Response)

		replies, err := repo.ListByScope(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, replies, 1)
	})

	t.Run("zero scope does not collide with global", func(t *testing.T) {
		zero := int64(0)
		require.NoError(t, repo.Upsert(ctx, testutil.CreateTestKeywordReply("wave", "global wave", nil)))
		require.NoError(t, repo.Upsert(ctx, testutil.CreateTestKeywordReply("wave", "zero wave", &zero)))
		require.NoError(t, repo.Upsert(ctx, testutil.CreateTestKeywordReply("wave", "global wave 2", nil)))

		global, err := repo.Find(ctx, "wave", nil)
		require.NoError(t, err)
		require.NotNil(t, global)
		assert.Equal(t, "global wave 2", global.Response)
		assert.True(t, global.IsGlobal())

		scoped, err := repo.Find(ctx, "wave", &zero)
		require.NoError(t, err)
		require.NotNil(t, scoped)
		assert.Equal(t, "zero wave", scoped.Response)
	})

	t.Run("miss", func(t *testing.T) {
		other := int64(5)
		reply, err := repo.Find(ctx, "hello", &other)
		require.NoError(t, err)
		assert.Nil(t, reply)
	})
}
