package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
)

type PostRepository interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// GetByIDs 一次 IN 查询批量取帖子，缺失的 id 不在结果中
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	// ListByAuthor 按 created_at DESC, id DESC 分页
	ListByAuthor(ctx context.Context, authorID string, cur *pagination.Cursor, limit int) ([]*model.Post, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	WithTx(tx *gorm.DB) PostRepository
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository { return &postRepository{db: tx} }

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, dbErr(err, "post "+id)
	}
	return &p, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Post, error) {
	out := make(map[string]*model.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var posts []*model.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, dbErr(err, "get posts")
	}
	for _, p := range posts {
		out[p.ID] = p
	}
	return out, nil
}

func (r *postRepository) Exists(ctx context.Context, id string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, dbErr(err, "exists post")
	}
	return cnt > 0, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, cur *pagination.Cursor, limit int) ([]*model.Post, error) {
	q := r.db.WithContext(ctx).Where("author_id = ?", authorID)
	if cur != nil {
		t := cur.Time()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", t, t, cur.ID)
	}
	var posts []*model.Post
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, dbErr(err, "list posts")
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete post")
	}
	return res.RowsAffected, nil
}

func (r *postRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("author_id = ?", authorID).Delete(&model.Post{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete posts by author")
	}
	return res.RowsAffected, nil
}
