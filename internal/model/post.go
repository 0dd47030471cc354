package model

import "time"

// 帖子正文长度（按字符计）
const (
	MinPostContentLen = 6
	MaxPostContentLen = 140
)

// Post 帖子
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);not null;index:idx_post_author_created,priority:1"`
	Content   string    `json:"content" gorm:"type:varchar(140);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_post_author_created,priority:2"`
}

func (Post) TableName() string { return "posts" }
