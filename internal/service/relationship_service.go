package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/logger"
)

// FollowerInvalidator 关注关系变化后通知粉丝 id 缓存失效
type FollowerInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...string)
}

// FollowView 列表项：对方 id 与关注时间
type FollowView struct {
	UserID     string    `json:"user_id"`
	FollowedAt time.Time `json:"followed_at"`
}

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error)
	// Unfollow 返回删除的边数（0 或 1）
	Unfollow(ctx context.Context, followerID, followeeID string) (int64, error)
	ListFollowers(ctx context.Context, userID, cursor string, limit int) (pagination.Page[FollowView], error)
	ListFollowings(ctx context.Context, userID, cursor string, limit int) (pagination.Page[FollowView], error)
}

type relationshipService struct {
	follows     repository.FollowRepository
	users       repository.UserRepository
	invalidator FollowerInvalidator
}

// NewRelationshipService invalidator 可为 nil（未启用 Redis）
func NewRelationshipService(follows repository.FollowRepository, users repository.UserRepository, invalidator FollowerInvalidator) RelationshipService {
	return &relationshipService{follows: follows, users: users, invalidator: invalidator}
}

func (s *relationshipService) Follow(ctx context.Context, followerID, followeeID string) (*model.Follow, error) {
	if followerID == followeeID {
		return nil, apperr.Invalid("cannot follow yourself")
	}
	found, err := s.users.ExistingIDs(ctx, []string{followerID, followeeID})
	if err != nil {
		return nil, err
	}
	if !found[followeeID] {
		return nil, apperr.NotFound("user %s not found", followeeID)
	}
	if !found[followerID] {
		return nil, apperr.NotFound("user %s not found", followerID)
	}

	f, err := s.follows.Create(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, followeeID)
	logger.Debug("follow", zap.String("follower", followerID), zap.String("followee", followeeID))
	return f, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, followerID, followeeID string) (int64, error) {
	if followerID == followeeID {
		return 0, apperr.Invalid("cannot unfollow yourself")
	}
	n, err := s.follows.Delete(ctx, followerID, followeeID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx, followeeID)
	}
	return n, nil
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID, cursor string, limit int) (pagination.Page[FollowView], error) {
	return s.list(ctx, userID, cursor, limit, s.follows.ListFollowers, func(f *model.Follow) string { return f.FollowerID })
}

func (s *relationshipService) ListFollowings(ctx context.Context, userID, cursor string, limit int) (pagination.Page[FollowView], error) {
	return s.list(ctx, userID, cursor, limit, s.follows.ListFollowings, func(f *model.Follow) string { return f.FolloweeID })
}

type listFn func(ctx context.Context, userID string, cur *pagination.Cursor, limit int) ([]*model.Follow, error)

func (s *relationshipService) list(ctx context.Context, userID, cursor string, limit int, fetch listFn, other func(*model.Follow) string) (pagination.Page[FollowView], error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[FollowView]{}, err
	}
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return pagination.Page[FollowView]{}, err
	}
	if !ok {
		return pagination.Page[FollowView]{}, apperr.NotFound("user %s not found", userID)
	}

	limit = pagination.ClampLimit(limit)
	rows, err := fetch(ctx, userID, cur, limit+1)
	if err != nil {
		return pagination.Page[FollowView]{}, err
	}
	return pagination.Build(rows, limit,
		func(f *model.Follow) (int64, string) { return f.CreatedAt.UnixMicro(), other(f) },
		func(f *model.Follow) FollowView {
			return FollowView{UserID: other(f), FollowedAt: f.CreatedAt.UTC()}
		},
	), nil
}

func (s *relationshipService) invalidate(ctx context.Context, followeeID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, followeeID)
	}
}
