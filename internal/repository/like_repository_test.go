package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestLikeTaggedTargets(t *testing.T) {
	repo := NewLikeRepository(testutil.NewDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice", model.TargetPost, "x1")
	require.NoError(t, err)
	// 同一个 id 在不同 kind 下是不同对象
	_, err = repo.Create(ctx, "alice", model.TargetComment, "x1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "bob", model.TargetPost, "x1")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice", model.TargetPost, "x1")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	n, err := repo.Count(ctx, model.TargetPost, "x1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.Count(ctx, model.TargetComment, "x1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := repo.CountMany(ctx, model.TargetPost, []string{"x1", "x2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"x1": 2}, counts)

	liked, err := repo.LikedBy(ctx, "bob", model.TargetPost, []string{"x1", "x2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"x1": true}, liked)

	deleted, err := repo.Delete(ctx, "alice", model.TargetPost, "x1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteByTarget(ctx, model.TargetPost, "x1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
