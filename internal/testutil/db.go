// Package testutil opens throwaway sqlite databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/pkg/database"
)

// NewDB 打开一个独立的内存库并建表。
// :memory: 每个连接一份库，所以连接池固定为 1。
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedUsers 以 id == username 的方式批量建用户
func SeedUsers(tb testing.TB, db *gorm.DB, ids ...string) {
	tb.Helper()
	users := make([]model.User, len(ids))
	for i, id := range ids {
		users[i] = model.User{ID: id, Username: id, Email: id + "@example.com", PasswordHash: "x"}
	}
	if len(users) == 0 {
		return
	}
	if err := db.WithContext(context.Background()).CreateInBatches(&users, 500).Error; err != nil {
		tb.Fatalf("seed users: %v", err)
	}
}

// SeedPost 直接写一条帖子，created_at 由调用方给定
func SeedPost(tb testing.TB, db *gorm.DB, id, authorID, content string, createdAt time.Time) *model.Post {
	tb.Helper()
	p := &model.Post{ID: id, AuthorID: authorID, Content: content, CreatedAt: createdAt.UTC()}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed post: %v", err)
	}
	return p
}
