package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/logger"
)

// PublishMode sync 在请求内扇出；async 只写 outbox 交给 FanoutWorker
type PublishMode string

const (
	PublishSync  PublishMode = "sync"
	PublishAsync PublishMode = "async"
)

// PublishResult Fanout 在 async 模式或同步扇出失败时为 nil
type PublishResult struct {
	Post   *model.Post   `json:"post"`
	Fanout *FanoutResult `json:"fanout,omitempty"`
}

// Publisher 负责事务内写 posts + outbox
type Publisher struct {
	db      *gorm.DB
	users   repository.UserRepository
	outbox  repository.OutboxRepository
	engine  *FanoutEngine
	mode    PublishMode
	timeout time.Duration
}

func NewPublisher(db *gorm.DB, users repository.UserRepository, outbox repository.OutboxRepository, engine *FanoutEngine, mode PublishMode, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Publisher{db: db, users: users, outbox: outbox, engine: engine, mode: mode, timeout: timeout}
}

// Publish 在一个事务内落地 Post 与 Outbox 事件；sync 模式下随后立即扇出。
// 扇出运行在脱离请求的 ctx 上，请求取消不会中断已开始的投递。
func (p *Publisher) Publish(ctx context.Context, actorID, content string) (*PublishResult, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < model.MinPostContentLen || n > model.MaxPostContentLen {
		return nil, apperr.Invalid("content must be %d..%d characters", model.MinPostContentLen, model.MaxPostContentLen)
	}
	ok, err := p.users.Exists(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("user %s not found", actorID)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	post := &model.Post{ID: uuid.New().String(), AuthorID: actorID, Content: content, CreatedAt: now}
	ob := &model.Outbox{
		ID:            uuid.New().String(),
		PostID:        post.ID,
		AuthorID:      actorID,
		PostCreatedAt: now,
		Status:        model.OutboxPending,
		CreatedAt:     now,
	}
	if p.mode == PublishSync {
		// 请求内扇出期间 worker 不可 claim；进程崩溃后由 reaper 退回 pending
		ob.Status = model.OutboxProcessing
		ob.ClaimedAt = &now
	}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return tx.Create(ob).Error
	})
	if err != nil {
		return nil, apperr.Transient(err, "publish post")
	}

	res := &PublishResult{Post: post}
	if p.mode != PublishSync {
		return res, nil
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	fr, err := p.engine.OnPostCreated(fctx, post)
	if err != nil {
		// 帖子已落地，事件退回 pending 由 worker 重试
		logger.Warn("inline fanout failed, deferred to worker", zap.String("post_id", post.ID), zap.Error(err))
		if err := p.outbox.MarkFailed(fctx, ob.ID, err); err != nil {
			logger.Warn("mark outbox failed", zap.String("post_id", post.ID), zap.Error(err))
		}
		return res, nil
	}
	if err := p.outbox.MarkDone(fctx, ob.ID, int64(fr.Recipients)); err != nil {
		logger.Warn("mark outbox done", zap.String("post_id", post.ID), zap.Error(err))
	}
	res.Fanout = fr
	return res, nil
}
