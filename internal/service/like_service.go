package service

import (
	"context"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
)

// LikeService 点赞；目标是 {post, comment} 的 tagged union
type LikeService struct {
	likes    repository.LikeRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func NewLikeService(likes repository.LikeRepository, posts repository.PostRepository, comments repository.CommentRepository) *LikeService {
	return &LikeService{likes: likes, posts: posts, comments: comments}
}

// Like 重复点赞返回 Conflict；目标不存在返回 NotFound
func (s *LikeService) Like(ctx context.Context, actorID string, kind model.TargetKind, targetID string) (*model.Like, error) {
	if err := s.checkTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}
	return s.likes.Create(ctx, actorID, kind, targetID)
}

// Unlike 幂等，返回删除条数
func (s *LikeService) Unlike(ctx context.Context, actorID string, kind model.TargetKind, targetID string) (int64, error) {
	if !kind.Valid() {
		return 0, apperr.Invalid("unknown target kind %q", kind)
	}
	return s.likes.Delete(ctx, actorID, kind, targetID)
}

func (s *LikeService) CountFor(ctx context.Context, kind model.TargetKind, targetID string) (int64, error) {
	if !kind.Valid() {
		return 0, apperr.Invalid("unknown target kind %q", kind)
	}
	return s.likes.Count(ctx, kind, targetID)
}

func (s *LikeService) checkTarget(ctx context.Context, kind model.TargetKind, targetID string) error {
	var (
		ok  bool
		err error
	)
	switch kind {
	case model.TargetPost:
		ok, err = s.posts.Exists(ctx, targetID)
	case model.TargetComment:
		ok, err = s.comments.Exists(ctx, targetID)
	default:
		return apperr.Invalid("unknown target kind %q", kind)
	}
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("%s %s not found", kind, targetID)
	}
	return nil
}
