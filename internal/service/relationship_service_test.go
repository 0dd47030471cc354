package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestSelfFollowRejectedBeforeStorage(t *testing.T) {
	// 没有任何存储依赖：若触达存储会直接 panic
	svc := NewRelationshipService(nil, nil, nil)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "", "00000000-0000-0000-0000-000000000000"} {
		_, err := svc.Follow(ctx, u, u)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "follow(%q,%q)", u, u)

		_, err = svc.Unfollow(ctx, u, u)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "unfollow(%q,%q)", u, u)
	}
}

func TestFollowUnknownTarget(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice")

	_, err := e.rel.Follow(context.Background(), "alice", "ghost")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSelfFollowAndDoubleFollowScenario(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	ctx := context.Background()

	_, err := e.rel.Follow(ctx, "alice", "alice")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	_, err = e.rel.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = e.rel.Follow(ctx, "alice", "bob")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	page, err := e.rel.ListFollowers(ctx, "bob", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "alice", page.Items[0].UserID)
	assert.Empty(t, page.NextCursor)
}

func TestUnfollowIdempotent(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	ctx := context.Background()
	e.follow(t, "alice", "bob")

	n, err := e.rel.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = e.rel.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestFollowInvalidatesFollowerCache(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	inv := &recordingInvalidator{}
	svc := NewRelationshipService(e.follows, e.users, inv)
	ctx := context.Background()

	_, err := svc.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)
	// 没有删除任何边，不需要失效
	_, err = svc.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob", "bob"}, inv.keys)
}

func TestListFollowersPaginationStable(t *testing.T) {
	e := newEnv(t, 500)
	ids := []string{"star"}
	for i := 0; i < 7; i++ {
		ids = append(ids, fmt.Sprintf("fan%d", i))
	}
	testutil.SeedUsers(t, e.db, append(ids, "late")...)
	ctx := context.Background()
	for _, id := range ids[1:] {
		e.follow(t, id, "star")
	}

	seen := map[string]int{}
	cursor := ""
	for pages := 0; ; pages++ {
		page, err := e.rel.ListFollowers(ctx, "star", cursor, 3)
		require.NoError(t, err)
		for _, it := range page.Items {
			seen[it.UserID]++
		}
		if pages == 0 {
			// 分页进行中新增的粉丝不影响后续页
			e.follow(t, "late", "star")
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Len(t, seen, 7)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
	assert.Zero(t, seen["late"])
}

func TestListFollowingsAndErrors(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob", "carol")
	ctx := context.Background()
	e.follow(t, "alice", "bob", "carol")

	page, err := e.rel.ListFollowings(ctx, "alice", "", 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	_, err = e.rel.ListFollowings(ctx, "alice", "%%%", 10)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	_, err = e.rel.ListFollowers(ctx, "ghost", "", 10)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
