package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestTimelineScenario(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob", "carol", "dave")
	e.follow(t, "alice", "bob", "carol")
	ctx := context.Background()

	post := testutil.SeedPost(t, e.db, "p-hello", "bob", "hello", at(100))
	_, err := e.engine.OnPostCreated(ctx, post)
	require.NoError(t, err)

	for _, owner := range []string{"alice", "bob"} {
		page, err := e.timeline.GetTimeline(ctx, owner, "", 20)
		require.NoError(t, err)
		require.Len(t, page.Items, 1, owner)
		assert.Equal(t, "p-hello", page.Items[0].PostID)
		assert.Equal(t, "bob", page.Items[0].AuthorID)
		assert.Equal(t, "hello", page.Items[0].Content)
		assert.True(t, page.Items[0].OccurredAt.Equal(at(100)))
	}

	page, err := e.timeline.GetTimeline(ctx, "dave", "", 20)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = e.timeline.GetTimeline(ctx, "nobody", "", 20)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTimelineOrderedByPostTimeNotFanoutTime(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	e.follow(t, "alice", "bob")
	ctx := context.Background()

	newer := testutil.SeedPost(t, e.db, "p-new", "bob", "second", at(200))
	older := testutil.SeedPost(t, e.db, "p-old", "bob", "first", at(100))
	// 晚写的反而先扇出
	for _, p := range []*model.Post{newer, older} {
		_, err := e.engine.OnPostCreated(ctx, p)
		require.NoError(t, err)
	}

	page, err := e.timeline.GetTimeline(ctx, "alice", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p-new", page.Items[0].PostID)
	assert.Equal(t, "p-old", page.Items[1].PostID)
}

func TestTimelinePaginationStableUnderInserts(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	e.follow(t, "alice", "bob")
	ctx := context.Background()

	// 同一时间戳的帖子依靠 post_id 决定顺序
	for i := 0; i < 9; i++ {
		p := testutil.SeedPost(t, e.db, fmt.Sprintf("p%d", i), "bob", "x", at(100+int64(i/3)))
		_, err := e.engine.OnPostCreated(ctx, p)
		require.NoError(t, err)
	}

	var got []string
	cursor := ""
	for round := 0; ; round++ {
		page, err := e.timeline.GetTimeline(ctx, "alice", cursor, 4)
		require.NoError(t, err)
		for _, it := range page.Items {
			got = append(got, it.PostID)
		}
		if round == 0 {
			p := testutil.SeedPost(t, e.db, "p-late", "bob", "late", time.Now())
			_, err := e.engine.OnPostCreated(ctx, p)
			require.NoError(t, err)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"p8", "p7", "p6", "p5", "p4", "p3", "p2", "p1", "p0"}, got)
}

func TestTimelineSkipsDeletedPosts(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p := testutil.SeedPost(t, e.db, fmt.Sprintf("p%d", i), "alice", "x", at(100+int64(i)))
		_, err := e.engine.OnPostCreated(ctx, p)
		require.NoError(t, err)
	}
	// 只删帖子不删 inbox，模拟两步之间崩溃
	_, err := e.posts.Delete(ctx, "p2")
	require.NoError(t, err)

	page, err := e.timeline.GetTimeline(ctx, "alice", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p1", page.Items[0].PostID)
	require.NotEmpty(t, page.NextCursor)

	page, err = e.timeline.GetTimeline(ctx, "alice", page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p0", page.Items[0].PostID)
	assert.Empty(t, page.NextCursor)
}

func TestTimelineRejectsMalformedCursor(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice")

	_, err := e.timeline.GetTimeline(context.Background(), "alice", strings.Repeat("!", 8), 10)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}
