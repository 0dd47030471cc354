package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
)

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateContent(ctx context.Context, id, content string) (*model.Comment, error)
	Delete(ctx context.Context, id string) (int64, error)
	// ListByPost 按 created_at ASC, id ASC 分页
	ListByPost(ctx context.Context, postID string, cur *pagination.Cursor, limit int) ([]*model.Comment, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
	// DeleteByUser 删除用户写的评论以及其帖子下的全部评论
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	WithTx(tx *gorm.DB) CommentRepository
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository { return &commentRepository{db: tx} }

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	return dbErr(r.db.WithContext(ctx).Create(c).Error, "create comment")
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, dbErr(err, "comment "+id)
	}
	return &c, nil
}

func (r *commentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, dbErr(err, "exists comment")
	}
	return cnt > 0, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id, content string) (*model.Comment, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	res := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": now})
	if res.Error != nil {
		return nil, dbErr(res.Error, "update comment")
	}
	if res.RowsAffected == 0 {
		return nil, dbErr(gorm.ErrRecordNotFound, "comment "+id)
	}
	return r.GetByID(ctx, id)
}

func (r *commentRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete comment")
	}
	return res.RowsAffected, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string, cur *pagination.Cursor, limit int) ([]*model.Comment, error) {
	q := r.db.WithContext(ctx).Where("post_id = ?", postID)
	if cur != nil {
		t := cur.Time()
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", t, t, cur.ID)
	}
	var comments []*model.Comment
	if err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&comments).Error; err != nil {
		return nil, dbErr(err, "list comments")
	}
	return comments, nil
}

func (r *commentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&cnt).Error; err != nil {
		return 0, dbErr(err, "count comments")
	}
	return cnt, nil
}

func (r *commentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.Comment{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete comments by post")
	}
	return res.RowsAffected, nil
}

func (r *commentRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	posts := r.db.Session(&gorm.Session{NewDB: true}).Model(&model.Post{}).Select("id").Where("author_id = ?", userID)
	res := r.db.WithContext(ctx).
		Where("user_id = ? OR post_id IN (?)", userID, posts).
		Delete(&model.Comment{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete comments by user")
	}
	return res.RowsAffected, nil
}
