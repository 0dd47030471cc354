package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/pagination"
)

// MaxAppendBatch BulkAppend 单次可接受的最大条数（6 列 * 2000 低于 sqlite/pg 的参数上限）
const MaxAppendBatch = 2000

// AppendResult 本次写入新增与因 (owner, post) 重复而跳过的条目
type AppendResult struct {
	Inserted []model.FeedEntry
	Skipped  []model.FeedEntry
}

type InboxRepository interface {
	// BulkAppend 一条 SQL 写入一批；重复的 (owner, post) 被跳过而不是报错
	BulkAppend(ctx context.Context, entries []model.FeedEntry) (*AppendResult, error)
	// ListTimeline 按 score DESC, post_id DESC 分页
	ListTimeline(ctx context.Context, ownerID string, cur *pagination.Cursor, limit int) ([]*model.Inbox, error)
	// ListOwners 返回持有某帖子的全部 owner
	ListOwners(ctx context.Context, postID string) ([]string, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	// DeleteByAuthor 删除某作者全部帖子在所有 inbox 中的条目
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	WithTx(tx *gorm.DB) InboxRepository
}

type inboxRepository struct {
	db *gorm.DB
}

func NewInboxRepository(db *gorm.DB) InboxRepository { return &inboxRepository{db: db} }

func (r *inboxRepository) WithTx(tx *gorm.DB) InboxRepository { return &inboxRepository{db: tx} }

type entryKey struct{ owner, post string }

func (r *inboxRepository) BulkAppend(ctx context.Context, entries []model.FeedEntry) (*AppendResult, error) {
	res := &AppendResult{}
	if len(entries) == 0 {
		return res, nil
	}
	if len(entries) > MaxAppendBatch {
		return nil, apperr.Invalid("bulk append of %d entries exceeds %d", len(entries), MaxAppendBatch)
	}

	// 同一批内的重复直接算作跳过
	seen := make(map[entryKey]struct{}, len(entries))
	batch := make([]model.FeedEntry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{e.OwnerID, e.PostID}
		if _, ok := seen[k]; ok {
			res.Skipped = append(res.Skipped, e)
			continue
		}
		seen[k] = struct{}{}
		batch = append(batch, e)
	}

	now := time.Now().UTC()
	var sb strings.Builder
	sb.WriteString("INSERT INTO inbox (id, user_id, post_id, score, occurred_at, created_at) VALUES ")
	args := make([]any, 0, len(batch)*6)
	for i, e := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, uuid.New().String(), e.OwnerID, e.PostID, e.Score(), e.OccurredAt.UTC(), now)
	}
	sb.WriteString(" ON CONFLICT (user_id, post_id) DO NOTHING RETURNING user_id, post_id")

	var inserted []struct {
		UserID string
		PostID string
	}
	if err := r.db.WithContext(ctx).Raw(sb.String(), args...).Scan(&inserted).Error; err != nil {
		return nil, dbErr(err, "bulk append inbox")
	}

	fresh := make(map[entryKey]struct{}, len(inserted))
	for _, row := range inserted {
		fresh[entryKey{row.UserID, row.PostID}] = struct{}{}
	}
	for _, e := range batch {
		if _, ok := fresh[entryKey{e.OwnerID, e.PostID}]; ok {
			res.Inserted = append(res.Inserted, e)
		} else {
			res.Skipped = append(res.Skipped, e)
		}
	}
	return res, nil
}

func (r *inboxRepository) ListTimeline(ctx context.Context, ownerID string, cur *pagination.Cursor, limit int) ([]*model.Inbox, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if cur != nil {
		q = q.Where("(score < ? OR (score = ? AND post_id < ?))", cur.Micros, cur.Micros, cur.ID)
	}
	var rows []*model.Inbox
	if err := q.Order("score DESC").Order("post_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, dbErr(err, "list timeline")
	}
	return rows, nil
}

func (r *inboxRepository) ListOwners(ctx context.Context, postID string) ([]string, error) {
	var owners []string
	if err := r.db.WithContext(ctx).Model(&model.Inbox{}).
		Where("post_id = ?", postID).
		Order("user_id").
		Pluck("user_id", &owners).Error; err != nil {
		return nil, dbErr(err, "list inbox owners")
	}
	return owners, nil
}

func (r *inboxRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.Inbox{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete inbox by post")
	}
	return res.RowsAffected, nil
}

func (r *inboxRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", ownerID).Delete(&model.Inbox{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete inbox by owner")
	}
	return res.RowsAffected, nil
}

func (r *inboxRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	sub := r.db.Session(&gorm.Session{NewDB: true}).Model(&model.Post{}).Select("id").Where("author_id = ?", authorID)
	res := r.db.WithContext(ctx).Where("post_id IN (?)", sub).Delete(&model.Inbox{})
	if res.Error != nil {
		return 0, dbErr(res.Error, "delete inbox by author")
	}
	return res.RowsAffected, nil
}
