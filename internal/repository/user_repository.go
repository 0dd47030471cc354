package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Exists 供关注/时间线校验 id 是否有效
	Exists(ctx context.Context, id string) (bool, error)
	// ExistingIDs 一次 IN 查询过滤出存在的 id
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Delete(ctx context.Context, id string) (int64, error)
	// Forget 删除事务提交后调用，剔除并发读在提交前写回的缓存项
	Forget(id string)
	WithTx(tx *gorm.DB) UserRepository
}

type userRepository struct {
	db *gorm.DB
	// known 只缓存"存在"，删除时剔除；不存在的结果不缓存。
	// 其他实例删除的用户最多在 ttl 内仍被视为存在。
	known *expirable.LRU[string, struct{}]
}

// NewUserRepository cacheSize<=0 或 ttl<=0 时不启用存在性缓存
func NewUserRepository(db *gorm.DB, cacheSize int, ttl time.Duration) UserRepository {
	r := &userRepository{db: db}
	if cacheSize > 0 && ttl > 0 {
		r.known = expirable.NewLRU[string, struct{}](cacheSize, nil, ttl)
	}
	return r
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx, known: r.known}
}

func (r *userRepository) remember(id string) {
	if r.known != nil {
		r.known.Add(id, struct{}{})
	}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return dbErr(err, "create user")
	}
	r.remember(u.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, dbErr(err, "user "+id)
	}
	r.remember(u.ID)
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, dbErr(err, "user "+username)
	}
	r.remember(u.ID)
	return &u, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.known != nil && r.known.Contains(id) {
		return true, nil
	}
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, dbErr(err, "exists user")
	}
	if cnt > 0 {
		r.remember(id)
	}
	return cnt > 0, nil
}

func (r *userRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if r.known != nil && r.known.Contains(id) {
			out[id] = true
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id IN ?", missing).Pluck("id", &found).Error; err != nil {
		return nil, dbErr(err, "existing users")
	}
	for _, id := range found {
		out[id] = true
		r.remember(id)
	}
	return out, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	r.Forget(id)
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete user")
	}
	return res.RowsAffected, nil
}

func (r *userRepository) Forget(id string) {
	if r.known != nil {
		r.known.Remove(id)
	}
}
