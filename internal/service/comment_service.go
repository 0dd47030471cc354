package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
	"github.com/d60-Lab/newsfeed/internal/repository"
)

// CommentView 评论 + 点赞数
type CommentView struct {
	*model.Comment
	Likes int64 `json:"likes"`
}

// CommentService 评论只允许作者本人修改或删除
type CommentService struct {
	db       *gorm.DB
	comments repository.CommentRepository
	posts    repository.PostRepository
	likes    repository.LikeRepository
}

func NewCommentService(db *gorm.DB, comments repository.CommentRepository, posts repository.PostRepository, likes repository.LikeRepository) *CommentService {
	return &CommentService{db: db, comments: comments, posts: posts, likes: likes}
}

func normalizeComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > model.MaxCommentContentLen {
		return "", apperr.Invalid("content must be 1..%d characters", model.MaxCommentContentLen)
	}
	return content, nil
}

func (s *CommentService) Create(ctx context.Context, actorID, postID, content string) (*model.Comment, error) {
	content, err := normalizeComment(content)
	if err != nil {
		return nil, err
	}
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("post %s not found", postID)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    actorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) Update(ctx context.Context, actorID, commentID, content string) (*model.Comment, error) {
	content, err := normalizeComment(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, actorID, commentID); err != nil {
		return nil, err
	}
	return s.comments.UpdateContent(ctx, commentID, content)
}

// Delete 同一事务内删除评论收到的点赞
func (s *CommentService) Delete(ctx context.Context, actorID, commentID string) (*CleanupReport, error) {
	if _, err := s.owned(ctx, actorID, commentID); err != nil {
		return nil, err
	}
	rep := &CleanupReport{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if rep.Likes, err = s.likes.WithTx(tx).DeleteByTarget(ctx, model.TargetComment, commentID); err != nil {
			return err
		}
		rep.Comments, err = s.comments.WithTx(tx).Delete(ctx, commentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// ListByPost 最早的评论在前
func (s *CommentService) ListByPost(ctx context.Context, postID, cursor string, limit int) (pagination.Page[CommentView], error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return pagination.Page[CommentView]{}, err
	}
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return pagination.Page[CommentView]{}, err
	}
	if !ok {
		return pagination.Page[CommentView]{}, apperr.NotFound("post %s not found", postID)
	}

	limit = pagination.ClampLimit(limit)
	rows, err := s.comments.ListByPost(ctx, postID, cur, limit+1)
	if err != nil {
		return pagination.Page[CommentView]{}, err
	}
	ids := make([]string, 0, len(rows))
	for _, c := range rows[:min(len(rows), limit)] {
		ids = append(ids, c.ID)
	}
	counts, err := s.likes.CountMany(ctx, model.TargetComment, ids)
	if err != nil {
		return pagination.Page[CommentView]{}, err
	}
	return pagination.Build(rows, limit,
		func(c *model.Comment) (int64, string) { return c.CreatedAt.UnixMicro(), c.ID },
		func(c *model.Comment) CommentView { return CommentView{Comment: c, Likes: counts[c.ID]} },
	), nil
}

func (s *CommentService) CountByPost(ctx context.Context, postID string) (int64, error) {
	return s.comments.CountByPost(ctx, postID)
}

func (s *CommentService) owned(ctx context.Context, actorID, commentID string) (*model.Comment, error) {
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actorID {
		return nil, apperr.Forbidden("only the author can modify comment %s", commentID)
	}
	return c, nil
}
