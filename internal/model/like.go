package model

import (
	"fmt"
	"time"
)

// TargetKind 点赞对象类型
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

func (k TargetKind) Valid() bool { return k == TargetPost || k == TargetComment }

func ParseTargetKind(s string) (TargetKind, error) {
	switch k := TargetKind(s); k {
	case TargetPost, TargetComment:
		return k, nil
	default:
		return "", fmt.Errorf("unknown like target kind %q", s)
	}
}

// Like 点赞，同一用户对同一对象最多一条
type Like struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_like_user_target,priority:1"`
	TargetKind TargetKind `json:"target_kind" gorm:"type:varchar(16);not null;uniqueIndex:ux_like_user_target,priority:2;index:idx_like_target_created,priority:1"`
	TargetID   string     `json:"target_id" gorm:"type:varchar(36);not null;uniqueIndex:ux_like_user_target,priority:3;index:idx_like_target_created,priority:2"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index:idx_like_target_created,priority:3"`
}

func (Like) TableName() string { return "likes" }
