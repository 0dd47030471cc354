package model

import "time"

// Inbox 时间线项（按 user_id 切分），只由扇出写入
type Inbox struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	UserID string `gorm:"type:varchar(36);not null;uniqueIndex:ux_inbox_user_post,priority:1;index:idx_inbox_user_score,priority:1"`
	PostID string `gorm:"type:varchar(36);not null;uniqueIndex:ux_inbox_user_post,priority:2;index:idx_inbox_post;index:idx_inbox_user_score,priority:3"`
	// Score = OccurredAt 的微秒时间戳，(score, post_id) 构成全序
	Score      int64     `gorm:"not null;index:idx_inbox_user_score,priority:2"`
	OccurredAt time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

func (Inbox) TableName() string { return "inbox" }

// FeedEntry 扇出产生的 (owner, post, occurred_at)
type FeedEntry struct {
	OwnerID    string    `json:"owner_id"`
	PostID     string    `json:"post_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e FeedEntry) Score() int64 { return e.OccurredAt.UnixMicro() }

func (i *Inbox) Entry() FeedEntry {
	return FeedEntry{OwnerID: i.UserID, PostID: i.PostID, OccurredAt: i.OccurredAt}
}
