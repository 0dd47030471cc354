package service

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/logger"
)

// WorkerConfig FanoutWorker 参数，零值取默认
type WorkerConfig struct {
	Workers      int
	ClaimLimit   int
	PollInterval time.Duration
	Timeout      time.Duration
	MaxRetries   uint64
	RetryBase    time.Duration
}

// FanoutWorker 从 outbox 拉取发帖事件并调用 FanoutEngine。
// 重试策略在这里：仅对 TransientStorage 做指数退避，耗尽后退回 pending 等下一轮。
type FanoutWorker struct {
	outbox    repository.OutboxRepository
	engine    *FanoutEngine
	cfg       WorkerConfig
	metricsCh chan time.Duration // post 创建 -> 扇出完成的延迟
}

func NewFanoutWorker(outbox repository.OutboxRepository, engine *FanoutEngine, cfg WorkerConfig) *FanoutWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = 64
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}
	return &FanoutWorker{outbox: outbox, engine: engine, cfg: cfg, metricsCh: make(chan time.Duration, 65536)}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Run 启动 cfg.Workers 个轮询协程，阻塞到 ctx 结束
func (w *FanoutWorker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	return nil
}

func (w *FanoutWorker) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// 一轮处理满 claimLimit 说明还有积压，不等下一个 tick
			for {
				n, err := w.ProcessOnce(ctx)
				if err != nil {
					logger.Warn("fanout worker round failed", zap.Int("worker", id), zap.Error(err))
					break
				}
				if n < w.cfg.ClaimLimit || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// ProcessOnce claim 一批 pending 事件并逐个扇出，返回 claim 到的条数
func (w *FanoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.outbox.Claim(ctx, w.cfg.ClaimLimit)
	if err != nil {
		return 0, err
	}
	for i := range batch {
		_ = w.process(ctx, &batch[i])
	}
	return len(batch), nil
}

func (w *FanoutWorker) process(ctx context.Context, ob *model.Outbox) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.Timeout)
	defer cancel()

	var res *FanoutResult
	backoff := retry.WithMaxRetries(w.cfg.MaxRetries, retry.NewExponential(w.cfg.RetryBase))
	err := retry.Do(fctx, backoff, func(ctx context.Context) error {
		r, err := w.engine.OnPostCreated(ctx, ob.Post())
		if err != nil {
			if apperr.Is(err, apperr.KindTransientStorage) {
				return retry.RetryableError(err)
			}
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		logger.Warn("fanout failed, event returned to pending",
			zap.String("post_id", ob.PostID),
			zap.Int("attempts", ob.Attempts+1),
			zap.Error(err))
		if mErr := w.outbox.MarkFailed(fctx, ob.ID, err); mErr != nil {
			logger.Error("mark outbox failed", zap.String("outbox_id", ob.ID), zap.Error(mErr))
		}
		return err
	}

	if err := w.outbox.MarkDone(fctx, ob.ID, int64(res.Recipients)); err != nil {
		// 事件会被 reaper 放回 pending 后重放，重放是幂等的
		logger.Error("mark outbox done", zap.String("outbox_id", ob.ID), zap.Error(err))
		return err
	}
	if !ob.PostCreatedAt.IsZero() {
		select {
		case w.metricsCh <- time.Since(ob.PostCreatedAt):
		default:
		}
	}
	return nil
}
