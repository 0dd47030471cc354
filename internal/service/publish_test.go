package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

func TestPublishSyncDeliversInline(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	e.follow(t, "alice", "bob")
	pub := NewPublisher(e.db, e.users, e.outbox, e.engine, PublishSync, time.Second)
	ctx := context.Background()

	res, err := pub.Publish(ctx, "bob", "  hello world  ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Post.Content)
	require.NotNil(t, res.Fanout)
	assert.Equal(t, 2, res.Fanout.Inserted)
	assert.ElementsMatch(t, []string{"alice", "bob"}, e.owners(t, res.Post.ID))

	ob, err := e.outbox.GetByPost(ctx, res.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxDone, ob.Status)
	assert.True(t, ob.PostCreatedAt.Equal(res.Post.CreatedAt))
}

func TestPublishSurvivesCancelledRequest(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	e.follow(t, "alice", "bob")
	pub := NewPublisher(e.db, e.users, e.outbox, e.engine, PublishSync, time.Second)

	// 事务提交后请求才被取消：扇出不受影响
	ctx, cancel := context.WithCancel(context.Background())
	res, err := pub.Publish(ctx, "bob", "hi there")
	cancel()
	require.NoError(t, err)
	assert.Len(t, e.owners(t, res.Post.ID), 2)
}

func TestPublishAsyncLeavesEventPending(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "bob")
	pub := NewPublisher(e.db, e.users, e.outbox, e.engine, PublishAsync, time.Second)
	ctx := context.Background()

	res, err := pub.Publish(ctx, "bob", "later on")
	require.NoError(t, err)
	assert.Nil(t, res.Fanout)
	assert.Empty(t, e.owners(t, res.Post.ID))

	ob, err := e.outbox.GetByPost(ctx, res.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, ob.Status)
}

func TestPublishInlineFailureDefersToWorker(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "bob")
	flaky := &flakyInbox{InboxRepository: e.inbox, failOn: map[int]bool{1: true}}
	engine, err := NewFanoutEngine(e.follows, flaky, 500)
	require.NoError(t, err)
	pub := NewPublisher(e.db, e.users, e.outbox, engine, PublishSync, time.Second)
	ctx := context.Background()

	res, err := pub.Publish(ctx, "bob", "hi there")
	require.NoError(t, err, "post is durable even if inline fan-out fails")
	assert.Nil(t, res.Fanout)

	ob, err := e.outbox.GetByPost(ctx, res.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, ob.Status)
	assert.Equal(t, 1, ob.Attempts)
	assert.Nil(t, ob.ClaimedAt)

	n, err := NewFanoutWorker(e.outbox, engine, WorkerConfig{}).ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"bob"}, e.owners(t, res.Post.ID))
}

func TestPublishSyncEventIsNotClaimedByWorker(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "alice", "bob")
	e.follow(t, "alice", "bob")
	gate := newGatedFollowers(e.follows)
	engine, err := NewFanoutEngine(gate, e.inbox, 500)
	require.NoError(t, err)
	pub := NewPublisher(e.db, e.users, e.outbox, engine, PublishSync, 5*time.Second)
	worker := NewFanoutWorker(e.outbox, engine, WorkerConfig{})
	ctx := context.Background()

	type outcome struct {
		res *PublishResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := pub.Publish(ctx, "bob", "inline only")
		done <- outcome{res, err}
	}()

	// 请求内扇出进行中，事件已是 processing
	<-gate.reading
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	close(gate.release)
	out := <-done
	require.NoError(t, out.err)
	require.NotNil(t, out.res.Fanout)
	assert.Equal(t, 2, out.res.Fanout.Inserted)

	ob, err := e.outbox.GetByPost(ctx, out.res.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxDone, ob.Status)
	assert.Zero(t, ob.Attempts)
}

func TestPublishSyncEventRecoveredByReaper(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "bob")
	ctx := context.Background()

	// 模拟进程在请求内扇出时崩溃：事件停在 processing
	now := time.Now().UTC().Add(-time.Hour)
	post := testutil.SeedPost(t, e.db, "p-crash", "bob", "crashed mid fanout", now)
	require.NoError(t, e.db.Create(&model.Outbox{
		ID: "ob-1", PostID: post.ID, AuthorID: "bob", PostCreatedAt: now,
		Status: model.OutboxProcessing, CreatedAt: now, ClaimedAt: &now,
	}).Error)

	worker := NewFanoutWorker(e.outbox, e.engine, WorkerConfig{})
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	reset, err := e.outbox.ResetStale(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), reset)

	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"bob"}, e.owners(t, post.ID))
}

func TestPublishValidation(t *testing.T) {
	e := newEnv(t, 500)
	testutil.SeedUsers(t, e.db, "bob")
	pub := NewPublisher(e.db, e.users, e.outbox, e.engine, PublishSync, time.Second)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "short", "  abc  ", strings.Repeat("x", model.MaxPostContentLen+1)} {
		_, err := pub.Publish(ctx, "bob", content)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "len %d", len(content))
	}
	_, err := pub.Publish(ctx, "bob", strings.Repeat("é", model.MaxPostContentLen))
	assert.NoError(t, err)
	_, err = pub.Publish(ctx, "bob", strings.Repeat("é", model.MinPostContentLen))
	assert.NoError(t, err)

	_, err = pub.Publish(ctx, "ghost", "hi")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
