package model

import "time"

// Comment 帖子评论，按 created_at 正序展示
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);not null;index:idx_comment_post_created,priority:1"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_comment_user"`
	Content   string    `json:"content" gorm:"type:varchar(140);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_comment_post_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

const MaxCommentContentLen = 140
