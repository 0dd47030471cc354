package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/logger"
)

const reapTimeout = time.Minute

// OutboxReaper 定时把 claim 后长时间未完成（worker 崩溃）的事件退回 pending
type OutboxReaper struct {
	outbox     repository.OutboxRepository
	staleAfter time.Duration
	cron       *cron.Cron
	now        func() time.Time
}

func NewOutboxReaper(outbox repository.OutboxRepository, staleAfter time.Duration) *OutboxReaper {
	return &OutboxReaper{
		outbox:     outbox,
		staleAfter: staleAfter,
		cron:       cron.New(cron.WithLocation(time.UTC)),
		now:        time.Now,
	}
}

// RunOnce 返回被退回的事件数
func (r *OutboxReaper) RunOnce(ctx context.Context) (int64, error) {
	n, err := r.outbox.ResetStale(ctx, r.now().Add(-r.staleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Warn("stale outbox events reset", zap.Int64("count", n))
	}
	return n, nil
}

// Run 按 spec（cron 表达式或 @every）调度，阻塞到 ctx 结束
func (r *OutboxReaper) Run(ctx context.Context, spec string) error {
	if _, err := r.cron.AddFunc(spec, func() {
		rctx, cancel := context.WithTimeout(ctx, reapTimeout)
		defer cancel()
		if _, err := r.RunOnce(rctx); err != nil {
			logger.Error("outbox reaper", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	r.cron.Start()
	<-ctx.Done()
	<-r.cron.Stop().Done()
	return nil
}
