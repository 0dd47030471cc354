package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/internal/testutil"
)

type env struct {
	db       *gorm.DB
	users    repository.UserRepository
	follows  repository.FollowRepository
	inbox    repository.InboxRepository
	posts    repository.PostRepository
	outbox   repository.OutboxRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository

	rel      RelationshipService
	engine   *FanoutEngine
	timeline *TimelineService
}

func newEnv(t *testing.T, batchSize int) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{
		db:       db,
		users:    repository.NewUserRepository(db, 64, time.Minute),
		follows:  repository.NewFollowRepository(db),
		inbox:    repository.NewInboxRepository(db),
		posts:    repository.NewPostRepository(db),
		outbox:   repository.NewOutboxRepository(db),
		likes:    repository.NewLikeRepository(db),
		comments: repository.NewCommentRepository(db),
	}
	e.rel = NewRelationshipService(e.follows, e.users, nil)
	engine, err := NewFanoutEngine(e.follows, e.inbox, batchSize)
	require.NoError(t, err)
	e.engine = engine
	e.timeline = NewTimelineService(e.inbox, e.posts, e.users)
	return e
}

func (e *env) follow(t *testing.T, follower string, followees ...string) {
	t.Helper()
	for _, f := range followees {
		_, err := e.rel.Follow(context.Background(), follower, f)
		require.NoError(t, err)
	}
}

func (e *env) owners(t *testing.T, postID string) []string {
	t.Helper()
	owners, err := e.inbox.ListOwners(context.Background(), postID)
	require.NoError(t, err)
	return owners
}

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

var errStorageDown = errors.New("storage down")

// flakyInbox 让第 failOn 次（从 1 开始）BulkAppend 失败
type flakyInbox struct {
	repository.InboxRepository
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *flakyInbox) BulkAppend(ctx context.Context, entries []model.FeedEntry) (*repository.AppendResult, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failOn[f.calls]
	f.mu.Unlock()
	if fail {
		return nil, apperr.Transient(errStorageDown, "bulk append inbox")
	}
	return f.InboxRepository.BulkAppend(ctx, entries)
}

// recordingInvalidator 记录被失效的 key
type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, userIDs...)
}

// gatedFollowers 第一次读取时通知 reading 并等待 release
type gatedFollowers struct {
	FollowerIDSource
	once    sync.Once
	reading chan struct{}
	release chan struct{}
}

func newGatedFollowers(src FollowerIDSource) *gatedFollowers {
	return &gatedFollowers{FollowerIDSource: src, reading: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedFollowers) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	g.once.Do(func() {
		close(g.reading)
		<-g.release
	})
	return g.FollowerIDSource.ListFollowerIDs(ctx, userID)
}
