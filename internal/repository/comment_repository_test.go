package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func seedComment(t *testing.T, repo CommentRepository, id, postID, userID string, sec int64) *model.Comment {
	t.Helper()
	c := &model.Comment{
		ID: id, PostID: postID, UserID: userID, Content: "comment " + id,
		CreatedAt: time.Unix(sec, 0).UTC(), UpdatedAt: time.Unix(sec, 0).UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCommentListByPostOldestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	seedComment(t, repo, "c2", "p1", "alice", 200)
	seedComment(t, repo, "c1", "p1", "bob", 100)
	seedComment(t, repo, "c3", "p1", "bob", 200)
	seedComment(t, repo, "x1", "p2", "bob", 50)

	page, err := repo.ListByPost(ctx, "p1", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c1", page[0].ID)
	assert.Equal(t, "c2", page[1].ID)

	cur := &pagination.Cursor{Micros: page[1].CreatedAt.UnixMicro(), ID: page[1].ID}
	page, err = repo.ListByPost(ctx, "p1", cur, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c3", page[0].ID)

	n, err := repo.CountByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCommentUpdateAndDelete(t *testing.T) {
	repo := NewCommentRepository(testutil.NewDB(t))
	ctx := context.Background()
	orig := seedComment(t, repo, "c1", "p1", "alice", 100)

	c, err := repo.UpdateContent(ctx, "c1", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", c.Content)
	assert.True(t, c.UpdatedAt.After(orig.UpdatedAt))
	assert.True(t, c.CreatedAt.Equal(orig.CreatedAt))

	_, err = repo.UpdateContent(ctx, "missing", "edited")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	n, err := repo.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	ok, err := repo.Exists(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetByID(ctx, "c1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCommentCascadeDeletes(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db, "alice", "bob")
	testutil.SeedPost(t, db, "pa", "alice", "alice post", time.Unix(10, 0))
	testutil.SeedPost(t, db, "pb", "bob", "bob post", time.Unix(20, 0))
	comments := NewCommentRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	seedComment(t, comments, "c1", "pa", "bob", 100)   // bob 评论 alice 的帖子
	seedComment(t, comments, "c2", "pb", "alice", 101) // alice 评论 bob 的帖子
	seedComment(t, comments, "c3", "pb", "bob", 102)   // bob 评论自己的帖子
	seedComment(t, comments, "c4", "pa", "alice", 103)
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		_, err := likes.Create(ctx, "alice", model.TargetComment, id)
		require.NoError(t, err)
	}

	n, err := likes.DeleteOnCommentsOfPost(ctx, "pa")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// bob 写的 c1/c3 + bob 帖子下的 c2
	n, err = likes.DeleteOnCommentsOfUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = comments.DeleteByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = comments.DeleteByPost(ctx, "pa")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
