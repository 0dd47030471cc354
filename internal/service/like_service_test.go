package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestLikeServiceTargets(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	testutil.SeedPost(t, e.db, "p1", "bob", "hi", at(100))
	svc := NewLikeService(e.likes, e.posts, e.comments)
	ctx := context.Background()
	require.NoError(t, e.comments.Create(ctx, &model.Comment{ID: "c1", PostID: "p1", UserID: "bob", Content: "nice", CreatedAt: at(101)}))

	_, err := svc.Like(ctx, "alice", model.TargetPost, "p1")
	require.NoError(t, err)
	_, err = svc.Like(ctx, "alice", model.TargetPost, "p1")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Like(ctx, "alice", model.TargetPost, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Like(ctx, "alice", model.TargetComment, "c1")
	require.NoError(t, err)
	_, err = svc.Like(ctx, "alice", model.TargetComment, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.Like(ctx, "alice", model.TargetKind("video"), "v1")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	n, err := svc.CountFor(ctx, model.TargetPost, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	deleted, err := svc.Unlike(ctx, "alice", model.TargetPost, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	deleted, err = svc.Unlike(ctx, "alice", model.TargetPost, "p1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestPostServiceListByUser(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	for i, id := range []string{"p0", "p1", "p2"} {
		testutil.SeedPost(t, e.db, id, "bob", "x", at(100+int64(i)))
	}
	_, err := e.likes.Create(context.Background(), "alice", model.TargetPost, "p1")
	require.NoError(t, err)
	svc := NewPostService(e.posts, e.users, e.likes, e.follows, NewCommentService(e.db, e.comments, e.posts, e.likes))
	ctx := context.Background()

	page, err := svc.ListByUser(ctx, "alice", "bob", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p2", page.Items[0].ID)
	assert.Equal(t, int64(1), page.Items[1].Likes)
	assert.False(t, page.Items[0].Liked)
	assert.True(t, page.Items[1].Liked)

	// bob 自己看时没有点过赞
	own, err := svc.ListByUser(ctx, "bob", "bob", "", 2)
	require.NoError(t, err)
	assert.False(t, own.Items[1].Liked)
	assert.Equal(t, int64(1), own.Items[1].Likes)

	page, err = svc.ListByUser(ctx, "alice", "bob", page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p0", page.Items[0].ID)
	assert.Empty(t, page.NextCursor)

	_, err = svc.ListByUser(ctx, "alice", "ghost", "", 2)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPostServiceGetDetail(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob", "carol")
	e.follow(t, "alice", "bob")
	testutil.SeedPost(t, e.db, "p1", "bob", "hello there", at(100))
	comments := NewCommentService(e.db, e.comments, e.posts, e.likes)
	svc := NewPostService(e.posts, e.users, e.likes, e.follows, comments)
	ctx := context.Background()

	first := &model.Comment{ID: "c1", PostID: "p1", UserID: "carol", Content: "first!", CreatedAt: at(101)}
	require.NoError(t, e.comments.Create(ctx, first))
	require.NoError(t, e.comments.Create(ctx, &model.Comment{ID: "c2", PostID: "p1", UserID: "alice", Content: "second", CreatedAt: at(102)}))
	_, err := e.likes.Create(ctx, "alice", model.TargetPost, "p1")
	require.NoError(t, err)
	_, err = e.likes.Create(ctx, "bob", model.TargetComment, first.ID)
	require.NoError(t, err)

	d, err := svc.Get(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, "hello there", d.Content)
	assert.Equal(t, int64(1), d.Likes)
	assert.True(t, d.Liked)
	assert.True(t, d.FollowingAuthor)
	assert.Equal(t, int64(2), d.CommentCount)
	require.Len(t, d.Comments.Items, 2)
	assert.Equal(t, first.ID, d.Comments.Items[0].ID)
	assert.Equal(t, int64(1), d.Comments.Items[0].Likes)

	d, err = svc.Get(ctx, "carol", "p1")
	require.NoError(t, err)
	assert.False(t, d.Liked)
	assert.False(t, d.FollowingAuthor)

	_, err = svc.Get(ctx, "alice", "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
