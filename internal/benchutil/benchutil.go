// Package benchutil 压测命令共用的造数与统计工具
package benchutil

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/model"
)

const insertBatch = 1000

// EnvInt 读取正整数环境变量，缺省或非法时返回 def
func EnvInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

// Pct 返回第 p 分位（0..1）的延迟
func Pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func Avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

// Reset 清空业务表，仅用于本地压测
func Reset(db *gorm.DB) error {
	for _, m := range []any{&model.Inbox{}, &model.Like{}, &model.Comment{}, &model.Outbox{}, &model.Post{}, &model.Follow{}, &model.User{}} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedUsers 批量创建 n 个用户，返回 id
func SeedUsers(db *gorm.DB, prefix string, n int) ([]string, error) {
	ids := make([]string, n)
	rows := make([]model.User, n)
	for i := range rows {
		id := uuid.NewString()
		ids[i] = id
		rows[i] = model.User{
			ID:           id,
			Username:     fmt.Sprintf("%s_%d", prefix, i),
			Email:        fmt.Sprintf("%s_%d@example.com", prefix, i),
			PasswordHash: "x",
		}
	}
	if err := db.CreateInBatches(&rows, insertBatch).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SeedFollowers 让 followers 全部关注 followee，绕过服务层直接写表
func SeedFollowers(db *gorm.DB, followee string, followers []string) error {
	base := time.Now().UTC().Truncate(time.Microsecond)
	rows := make([]model.Follow, len(followers))
	for i, f := range followers {
		rows[i] = model.Follow{
			ID:         uuid.NewString(),
			FollowerID: f,
			FolloweeID: followee,
			CreatedAt:  base.Add(-time.Duration(i) * time.Microsecond),
		}
	}
	return db.CreateInBatches(&rows, insertBatch).Error
}
