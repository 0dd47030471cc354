package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestFanoutCompleteAndExact(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "u", "a", "b", "c", "d")
	e.follow(t, "a", "u")
	e.follow(t, "b", "u")
	e.follow(t, "c", "u")
	post := testutil.SeedPost(t, e.db, "p1", "u", "hi", at(100))

	res, err := e.engine.OnPostCreated(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Recipients)
	assert.Equal(t, 4, res.Inserted)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.Chunks)

	assert.ElementsMatch(t, []string{"u", "a", "b", "c"}, e.owners(t, "p1"))

	page, err := e.timeline.GetTimeline(context.Background(), "a", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].OccurredAt.Equal(at(100)))
}

func TestFanoutIdempotent(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "u", "a", "b")
	e.follow(t, "a", "u")
	e.follow(t, "b", "u")
	post := testutil.SeedPost(t, e.db, "p1", "u", "hi", at(100))
	ctx := context.Background()

	_, err := e.engine.OnPostCreated(ctx, post)
	require.NoError(t, err)
	res, err := e.engine.OnPostCreated(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 3, res.Skipped)

	assert.ElementsMatch(t, []string{"u", "a", "b"}, e.owners(t, "p1"))
}

func TestFanoutChunksLargeDeliverySet(t *testing.T) {
	e := newEnv(t, 4)
	ids := []string{"star"}
	for i := 0; i < 10; i++ {
		ids = append(ids, fmt.Sprintf("f%02d", i))
	}
	testutil.SeedUsers(t, e.db, ids...)
	for _, id := range ids[1:] {
		e.follow(t, id, "star")
	}
	post := testutil.SeedPost(t, e.db, "p1", "star", "big news", at(100))

	res, err := e.engine.OnPostCreated(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Recipients)
	assert.Equal(t, 11, res.Inserted)
	assert.Equal(t, 3, res.Chunks)
	assert.ElementsMatch(t, ids, e.owners(t, "p1"))
}

func TestFanoutPartialFailureThenRetry(t *testing.T) {
	e := newEnv(t, 2)
	testutil.SeedUsers(t, e.db, "u", "a", "b", "c", "d")
	for _, id := range []string{"a", "b", "c", "d"} {
		e.follow(t, id, "u")
	}
	post := testutil.SeedPost(t, e.db, "p1", "u", "hi", at(100))

	flaky := &flakyInbox{InboxRepository: e.inbox, failOn: map[int]bool{2: true}}
	engine, err := NewFanoutEngine(e.follows, flaky, 2)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = engine.OnPostCreated(ctx, post)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTransientStorage))
	assert.Len(t, e.owners(t, "p1"), 2, "first chunk stays delivered")

	res, err := engine.OnPostCreated(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	assert.ElementsMatch(t, []string{"u", "a", "b", "c", "d"}, e.owners(t, "p1"))
}

func TestFanoutNoFollowersStillDeliversToAuthor(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "loner")
	post := testutil.SeedPost(t, e.db, "p1", "loner", "anyone?", at(100))

	res, err := e.engine.OnPostCreated(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Recipients)
	assert.Equal(t, []string{"loner"}, e.owners(t, "p1"))
}

func TestFanoutBatchSizeValidation(t *testing.T) {
	for _, n := range []int{0, -1, repository.MaxAppendBatch + 1} {
		_, err := NewFanoutEngine(nil, nil, n)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindFatalConfiguration), "batch size %d", n)
	}
	_, err := NewFanoutEngine(nil, nil, repository.MaxAppendBatch)
	assert.NoError(t, err)
}

func TestFanoutWithChunkRate(t *testing.T) {
	e := newEnv(t, 1)
	testutil.SeedUsers(t, e.db, "u", "a", "b")
	e.follow(t, "a", "u")
	e.follow(t, "b", "u")
	post := testutil.SeedPost(t, e.db, "p1", "u", "hi", at(100))

	engine, err := NewFanoutEngine(e.follows, e.inbox, 1, WithChunkRate(1000))
	require.NoError(t, err)
	res, err := engine.OnPostCreated(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Chunks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow, err := NewFanoutEngine(e.follows, e.inbox, 1, WithChunkRate(0.001))
	require.NoError(t, err)
	_, err = slow.OnPostCreated(ctx, &model.Post{ID: "p2", AuthorID: "u", CreatedAt: at(200)})
	assert.Error(t, err)
}

func TestDeliverySetDedup(t *testing.T) {
	assert.Equal(t, []string{"u", "a", "b"}, deliverySet("u", []string{"a", "u", "b", "a"}))
}
