package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestUserExistsAndCache(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, 16, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{ID: "u1", Username: "alice", Email: "a@example.com", PasswordHash: "h"}))
	testutil.SeedUsers(t, db, "u2")

	ok, err := repo.Exists(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.ExistingIDs(ctx, []string{"u1", "u2", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, found)

	n, err := repo.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	ok, err = repo.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "deleted users must not be served from the cache")
}

func TestUserCacheEntriesExpire(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, 16, 50*time.Millisecond)
	ctx := context.Background()
	testutil.SeedUsers(t, db, "u1")

	ok, err := repo.Exists(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	// 绕过本实例删除，模拟另一个进程删掉了用户
	require.NoError(t, db.Where("id = ?", "u1").Delete(&model.User{}).Error)
	ok, err = repo.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok, "served from cache before the ttl")

	assert.Eventually(t, func() bool {
		ok, err := repo.Exists(ctx, "u1")
		return err == nil && !ok
	}, time.Second, 20*time.Millisecond)
}

func TestUserForgetDropsCachedEntry(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, 16, time.Hour)
	ctx := context.Background()
	testutil.SeedUsers(t, db, "u1")

	ok, err := repo.Exists(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Where("id = ?", "u1").Delete(&model.User{}).Error)
	repo.Forget("u1")
	ok, err = repo.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserDuplicateUsername(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t), 0, 0)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.User{ID: "u1", Username: "alice", Email: "a@example.com", PasswordHash: "h"}))
	err := repo.Create(ctx, &model.User{ID: "u2", Username: "alice", Email: "b@example.com", PasswordHash: "h"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = repo.GetByID(ctx, "nobody")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
