package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
)

type LikeRepository interface {
	// Create 重复点赞返回 Conflict
	Create(ctx context.Context, userID string, kind model.TargetKind, targetID string) (*model.Like, error)
	Delete(ctx context.Context, userID string, kind model.TargetKind, targetID string) (int64, error)
	Count(ctx context.Context, kind model.TargetKind, targetID string) (int64, error)
	// CountMany 一次 GROUP BY 统计多个对象
	CountMany(ctx context.Context, kind model.TargetKind, targetIDs []string) (map[string]int64, error)
	// LikedBy 返回 userID 点过赞的那部分 targetIDs
	LikedBy(ctx context.Context, userID string, kind model.TargetKind, targetIDs []string) (map[string]bool, error)
	DeleteByTarget(ctx context.Context, kind model.TargetKind, targetID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// DeleteOnPostsOf 删除某作者全部帖子收到的点赞
	DeleteOnPostsOf(ctx context.Context, authorID string) (int64, error)
	// DeleteOnCommentsOfPost 删除某帖子下全部评论收到的点赞
	DeleteOnCommentsOfPost(ctx context.Context, postID string) (int64, error)
	// DeleteOnCommentsOfUser 删除用户写的评论、以及其帖子下评论收到的点赞
	DeleteOnCommentsOfUser(ctx context.Context, userID string) (int64, error)
	WithTx(tx *gorm.DB) LikeRepository
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository { return &likeRepository{db: tx} }

func (r *likeRepository) Create(ctx context.Context, userID string, kind model.TargetKind, targetID string) (*model.Like, error) {
	l := &model.Like{
		ID:         uuid.New().String(),
		UserID:     userID,
		TargetKind: kind,
		TargetID:   targetID,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_kind"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(l)
	if res.Error != nil {
		return nil, dbErr(res.Error, "create like")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("already liked")
	}
	return l, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID string, kind model.TargetKind, targetID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, kind, targetID).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete like")
	}
	return res.RowsAffected, nil
}

func (r *likeRepository) Count(ctx context.Context, kind model.TargetKind, targetID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Count(&cnt).Error; err != nil {
		return 0, dbErr(err, "count likes")
	}
	return cnt, nil
}

func (r *likeRepository) CountMany(ctx context.Context, kind model.TargetKind, targetIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		TargetID string
		Cnt      int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Like{}).
		Select("target_id, COUNT(*) AS cnt").
		Where("target_kind = ? AND target_id IN ?", kind, targetIDs).
		Group("target_id").
		Scan(&rows).Error; err != nil {
		return nil, dbErr(err, "count likes")
	}
	for _, row := range rows {
		out[row.TargetID] = row.Cnt
	}
	return out, nil
}

func (r *likeRepository) LikedBy(ctx context.Context, userID string, kind model.TargetKind, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND target_kind = ? AND target_id IN ?", userID, kind, targetIDs).
		Pluck("target_id", &ids).Error; err != nil {
		return nil, dbErr(err, "liked by")
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *likeRepository) DeleteByTarget(ctx context.Context, kind model.TargetKind, targetID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete likes by target")
	}
	return res.RowsAffected, nil
}

func (r *likeRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Like{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete likes by user")
	}
	return res.RowsAffected, nil
}

func (r *likeRepository) DeleteOnPostsOf(ctx context.Context, authorID string) (int64, error) {
	sub := r.db.Session(&gorm.Session{NewDB: true}).Model(&model.Post{}).Select("id").Where("author_id = ?", authorID)
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN (?)", model.TargetPost, sub).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete likes on posts")
	}
	return res.RowsAffected, nil
}

func (r *likeRepository) DeleteOnCommentsOfPost(ctx context.Context, postID string) (int64, error) {
	sub := r.db.Session(&gorm.Session{NewDB: true}).Model(&model.Comment{}).Select("id").Where("post_id = ?", postID)
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN (?)", model.TargetComment, sub).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete likes on comments")
	}
	return res.RowsAffected, nil
}

func (r *likeRepository) DeleteOnCommentsOfUser(ctx context.Context, userID string) (int64, error) {
	fresh := r.db.Session(&gorm.Session{NewDB: true})
	posts := fresh.Model(&model.Post{}).Select("id").Where("author_id = ?", userID)
	comments := fresh.Model(&model.Comment{}).Select("id").Where("user_id = ? OR post_id IN (?)", userID, posts)
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id IN (?)", model.TargetComment, comments).
		Delete(&model.Like{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete likes on comments")
	}
	return res.RowsAffected, nil
}
