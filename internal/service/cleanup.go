package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/logger"
)

// CleanupReport 级联删除各表的行数
type CleanupReport struct {
	Posts        int64 `json:"posts"`
	InboxEntries int64 `json:"inbox_entries"`
	OutboxEvents int64 `json:"outbox_events"`
	Likes        int64 `json:"likes"`
	Comments     int64 `json:"comments"`
	Follows      int64 `json:"follows"`
	Users        int64 `json:"users"`
}

// CleanupService inbox 的回收策略：级联删除。
// 删帖/删用户时在同一事务内删掉引用它们的 inbox 条目；
// 读时间线时帖子缺失的条目也会被跳过，两者共同保证不出现悬挂引用。
type CleanupService struct {
	db          *gorm.DB
	posts       repository.PostRepository
	inbox       repository.InboxRepository
	outbox      repository.OutboxRepository
	likes       repository.LikeRepository
	comments    repository.CommentRepository
	follows     repository.FollowRepository
	users       repository.UserRepository
	invalidator FollowerInvalidator
}

func NewCleanupService(
	db *gorm.DB,
	posts repository.PostRepository,
	inbox repository.InboxRepository,
	outbox repository.OutboxRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	follows repository.FollowRepository,
	users repository.UserRepository,
	invalidator FollowerInvalidator,
) *CleanupService {
	return &CleanupService{
		db: db, posts: posts, inbox: inbox, outbox: outbox,
		likes: likes, comments: comments, follows: follows, users: users, invalidator: invalidator,
	}
}

// DeletePost 只有作者本人可以删除
func (s *CleanupService) DeletePost(ctx context.Context, actorID, postID string) (*CleanupReport, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, apperr.Forbidden("only the author can delete post %s", postID)
	}

	rep := &CleanupReport{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if rep.InboxEntries, err = s.inbox.WithTx(tx).DeleteByPost(ctx, postID); err != nil {
			return err
		}
		if rep.OutboxEvents, err = s.outbox.WithTx(tx).DeleteByPost(ctx, postID); err != nil {
			return err
		}
		likes := s.likes.WithTx(tx)
		var n int64
		if n, err = likes.DeleteOnCommentsOfPost(ctx, postID); err != nil {
			return err
		}
		rep.Likes += n
		if n, err = likes.DeleteByTarget(ctx, model.TargetPost, postID); err != nil {
			return err
		}
		rep.Likes += n
		if rep.Comments, err = s.comments.WithTx(tx).DeleteByPost(ctx, postID); err != nil {
			return err
		}
		rep.Posts, err = s.posts.WithTx(tx).Delete(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("post deleted",
		zap.String("post_id", postID),
		zap.Int64("inbox_entries", rep.InboxEntries),
		zap.Int64("likes", rep.Likes),
		zap.Int64("comments", rep.Comments))
	return rep, nil
}

// DeleteUser 删除用户本人数据、其帖子在他人 inbox 中的条目、相关评论以及全部关注边
func (s *CleanupService) DeleteUser(ctx context.Context, userID string) (*CleanupReport, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("user %s not found", userID)
	}
	// 这些人的粉丝列表会变化
	followees, err := s.follows.ListFollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	rep := &CleanupReport{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inbox := s.inbox.WithTx(tx)
		likes := s.likes.WithTx(tx)
		var n int64
		var err error
		if n, err = inbox.DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
		rep.InboxEntries += n
		if n, err = inbox.DeleteByOwner(ctx, userID); err != nil {
			return err
		}
		rep.InboxEntries += n
		if rep.OutboxEvents, err = s.outbox.WithTx(tx).DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
		// 评论上的点赞依赖评论与帖子，先删
		if n, err = likes.DeleteOnCommentsOfUser(ctx, userID); err != nil {
			return err
		}
		rep.Likes += n
		if rep.Comments, err = s.comments.WithTx(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if n, err = likes.DeleteOnPostsOf(ctx, userID); err != nil {
			return err
		}
		rep.Likes += n
		if n, err = likes.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		rep.Likes += n
		if rep.Posts, err = s.posts.WithTx(tx).DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
		if rep.Follows, err = s.follows.WithTx(tx).DeleteByUser(ctx, userID); err != nil {
			return err
		}
		rep.Users, err = s.users.WithTx(tx).Delete(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.users.Forget(userID)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, append(followees, userID)...)
	}
	logger.Info("user deleted",
		zap.String("user_id", userID),
		zap.Int64("posts", rep.Posts),
		zap.Int64("inbox_entries", rep.InboxEntries),
		zap.Int64("comments", rep.Comments),
		zap.Int64("follows", rep.Follows))
	return rep, nil
}
