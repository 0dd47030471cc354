package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
)

// followerIDChunk 单次扫描粉丝 id 的行数
const followerIDChunk = 1000

type FollowRepository interface {
	// Create 重复关注返回 Conflict
	Create(ctx context.Context, followerID, followeeID string) (*model.Follow, error)
	// Delete 返回删除行数，不存在时为 0
	Delete(ctx context.Context, followerID, followeeID string) (int64, error)
	Exists(ctx context.Context, followerID, followeeID string) (bool, error)
	// ListFollowers 按 created_at DESC, follower_id DESC 分页
	ListFollowers(ctx context.Context, userID string, cur *pagination.Cursor, limit int) ([]*model.Follow, error)
	// ListFollowings 按 created_at DESC, followee_id DESC 分页
	ListFollowings(ctx context.Context, followerID string, cur *pagination.Cursor, limit int) ([]*model.Follow, error)
	// ListFollowerIDs 只取 id，不 join 用户表，供扇出使用
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
	ListFollowingIDs(ctx context.Context, followerID string) ([]string, error)
	// DeleteByUser 删除用户的全部出入边
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	WithTx(tx *gorm.DB) FollowRepository
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) WithTx(tx *gorm.DB) FollowRepository { return &followRepository{db: tx} }

func (r *followRepository) Create(ctx context.Context, followerID, followeeID string) (*model.Follow, error) {
	f := &model.Follow{
		ID:         uuid.New().String(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	// 唯一索引兜底并发的重复关注：只有一个请求能插入成功
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}}, DoNothing: true}).
		Create(f)
	if res.Error != nil {
		return nil, dbErr(res.Error, "create follow")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Conflict("already following")
	}
	return f, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete follow")
	}
	return res.RowsAffected, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&cnt).Error; err != nil {
		return false, dbErr(err, "exists follow")
	}
	return cnt > 0, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string, cur *pagination.Cursor, limit int) ([]*model.Follow, error) {
	return r.list(ctx, "followee_id", "follower_id", userID, cur, limit)
}

func (r *followRepository) ListFollowings(ctx context.Context, followerID string, cur *pagination.Cursor, limit int) ([]*model.Follow, error) {
	return r.list(ctx, "follower_id", "followee_id", followerID, cur, limit)
}

// list 基于 (created_at, otherCol) 的 keyset 分页
func (r *followRepository) list(ctx context.Context, ownerCol, otherCol, userID string, cur *pagination.Cursor, limit int) ([]*model.Follow, error) {
	q := r.db.WithContext(ctx).Where(ownerCol+" = ?", userID)
	if cur != nil {
		t := cur.Time()
		q = q.Where("(created_at < ? OR (created_at = ? AND "+otherCol+" < ?))", t, t, cur.ID)
	}
	var res []*model.Follow
	if err := q.Order("created_at DESC").Order(otherCol + " DESC").Limit(limit).Find(&res).Error; err != nil {
		return nil, dbErr(err, "list follows")
	}
	return res, nil
}

func (r *followRepository) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return r.pluckAll(ctx, "followee_id", "follower_id", userID)
}

func (r *followRepository) ListFollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	return r.pluckAll(ctx, "follower_id", "followee_id", followerID)
}

// pluckAll 按 id 游标分块读取，避免一次扫描物化超大结果
func (r *followRepository) pluckAll(ctx context.Context, ownerCol, idCol, userID string) ([]string, error) {
	var all []string
	after := ""
	for {
		var ids []string
		q := r.db.WithContext(ctx).Model(&model.Follow{}).Where(ownerCol+" = ?", userID)
		if after != "" {
			q = q.Where(idCol+" > ?", after)
		}
		if err := q.Order(idCol).Limit(followerIDChunk).Pluck(idCol, &ids).Error; err != nil {
			return nil, dbErr(err, "list follower ids")
		}
		all = append(all, ids...)
		if len(ids) < followerIDChunk {
			return all, nil
		}
		after = ids[len(ids)-1]
	}
}

func (r *followRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? OR followee_id = ?", userID, userID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete follows by user")
	}
	return res.RowsAffected, nil
}
