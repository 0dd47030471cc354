package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsfeed/internal/model"
)

type OutboxRepository interface {
	// Claim 把至多 limit 条 pending 事件置为 processing 并返回
	Claim(ctx context.Context, limit int) ([]model.Outbox, error)
	MarkDone(ctx context.Context, id string, fanoutCount int64) error
	// MarkFailed 退回 pending 等待下一轮，attempts+1
	MarkFailed(ctx context.Context, id string, cause error) error
	// ResetStale 把 claim 超过 olderThan 仍未完成的事件退回 pending
	ResetStale(ctx context.Context, olderThan time.Time) (int64, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	GetByPost(ctx context.Context, postID string) (*model.Outbox, error)
	WithTx(tx *gorm.DB) OutboxRepository
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository { return &outboxRepository{db: tx} }

func (r *outboxRepository) Claim(ctx context.Context, limit int) ([]model.Outbox, error) {
	var batch []model.Outbox
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", model.OutboxPending).Order("created_at").Limit(limit)
		if tx.Dialector.Name() == "postgres" {
			// 多个 worker 并发 claim 时互不阻塞
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).
			Where("id IN ? AND status = ?", ids, model.OutboxPending).
			Updates(map[string]any{"status": model.OutboxProcessing, "claimed_at": now}).Error
	})
	if err != nil {
		return nil, dbErr(err, "claim outbox")
	}
	for i := range batch {
		batch[i].Status = model.OutboxProcessing
		batch[i].ClaimedAt = &now
	}
	return batch, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string, fanoutCount int64) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       model.OutboxDone,
			"processed_at": now,
			"fanout_count": fanoutCount,
			"last_error":   "",
		}).Error
	return dbErr(err, "mark outbox done")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ? AND status <> ?", id, model.OutboxDone).
		Updates(map[string]any{
			"status":     model.OutboxPending,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
			"claimed_at": nil,
		}).Error
	return dbErr(err, "mark outbox failed")
}

func (r *outboxRepository) ResetStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("status = ? AND claimed_at < ?", model.OutboxProcessing, olderThan.UTC()).
		Updates(map[string]any{"status": model.OutboxPending, "claimed_at": nil})
	if res.Error != nil {
		return 0, dbErr(res.Error, "reset stale outbox")
	}
	return res.RowsAffected, nil
}

func (r *outboxRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.Outbox{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete outbox")
	}
	return res.RowsAffected, nil
}

func (r *outboxRepository) GetByPost(ctx context.Context, postID string) (*model.Outbox, error) {
	var o model.Outbox
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&o).Error; err != nil {
		return nil, dbErr(err, "outbox for post "+postID)
	}
	return &o, nil
}

func (r *outboxRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("author_id = ?", authorID).Delete(&model.Outbox{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete outbox by author")
	}
	return res.RowsAffected, nil
}
