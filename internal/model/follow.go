package model

import "time"

// Follow 关注关系（FollowerID 关注 FolloweeID），创建后不可变
type Follow struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `json:"follower_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair,priority:1;index:idx_follow_follower_created,priority:1;index:idx_follow_followee_follower,priority:2"`
	FolloweeID string `json:"followee_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair,priority:2;index:idx_follow_followee_created,priority:1;index:idx_follow_followee_follower,priority:1"`
	// idx_follow_pair = (follower_id, followee_id)，同一对最多一条
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_follow_follower_created,priority:2;index:idx_follow_followee_created,priority:2"`
}

func (Follow) TableName() string { return "follows" }
