package model

import "time"

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxDone       OutboxStatus = "done"
)

// Outbox 发帖事件外发盒，与 Post 同事务写入，由 FanoutWorker 消费
type Outbox struct {
	ID            string       `gorm:"primaryKey;type:varchar(36)"`
	PostID        string       `gorm:"type:varchar(36);uniqueIndex"`
	AuthorID      string       `gorm:"type:varchar(36);index:idx_outbox_author"`
	PostCreatedAt time.Time    `gorm:"not null"`
	Status        OutboxStatus `gorm:"type:varchar(16);index:idx_outbox_status_created,priority:1"`
	Attempts      int
	FanoutCount   int64
	LastError     string `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"index:idx_outbox_status_created,priority:2"`
	ClaimedAt     *time.Time
	ProcessedAt   *time.Time
}

func (Outbox) TableName() string { return "outbox" }

// Post 由事件还原扇出所需的字段
func (o *Outbox) Post() *Post {
	return &Post{ID: o.PostID, AuthorID: o.AuthorID, CreatedAt: o.PostCreatedAt}
}
