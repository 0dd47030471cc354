package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/logger"
)

const tracerName = "github.com/d60-Lab/newsfeed/internal/service"

// FollowerIDSource 扇出只需要粉丝 id（FollowRepository 或带缓存的包装）
type FollowerIDSource interface {
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// FanoutResult 一次扇出的汇总，chunk 边界对调用方不可见
type FanoutResult struct {
	PostID     string `json:"post_id"`
	Recipients int    `json:"recipients"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
	Chunks     int    `json:"chunks"`
}

// FanoutEngine 把一条帖子写入作者与全部粉丝的 inbox（推模式）。
// 引擎本身不重试；因 (owner, post) 唯一，重复执行是安全的。
type FanoutEngine struct {
	followers FollowerIDSource
	inbox     repository.InboxRepository
	batchSize int
	limiter   *rate.Limiter
	tracer    trace.Tracer
}

type EngineOption func(*FanoutEngine)

// WithChunkRate 限制每秒写入的 chunk 数，<=0 不限速
func WithChunkRate(perSecond float64) EngineOption {
	return func(e *FanoutEngine) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewFanoutEngine(followers FollowerIDSource, inbox repository.InboxRepository, batchSize int, opts ...EngineOption) (*FanoutEngine, error) {
	if batchSize <= 0 || batchSize > repository.MaxAppendBatch {
		return nil, apperr.New(apperr.KindFatalConfiguration, "fanout batch size %d out of range (1..%d)", batchSize, repository.MaxAppendBatch)
	}
	e := &FanoutEngine{
		followers: followers,
		inbox:     inbox,
		batchSize: batchSize,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OnPostCreated 一次批量读粉丝 id，按 batchSize 分块批量写 inbox
func (e *FanoutEngine) OnPostCreated(ctx context.Context, post *model.Post) (res *FanoutResult, err error) {
	ctx, span := e.tracer.Start(ctx, "fanout.OnPostCreated", trace.WithAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("post.author_id", post.AuthorID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	start := time.Now()

	followerIDs, err := e.followers.ListFollowerIDs(ctx, post.AuthorID)
	if err != nil {
		return nil, transient(err, "list follower ids")
	}

	recipients := deliverySet(post.AuthorID, followerIDs)
	entries := make([]model.FeedEntry, len(recipients))
	for i, owner := range recipients {
		entries[i] = model.FeedEntry{OwnerID: owner, PostID: post.ID, OccurredAt: post.CreatedAt}
	}
	span.SetAttributes(attribute.Int("fanout.recipients", len(entries)))

	res = &FanoutResult{PostID: post.ID, Recipients: len(entries)}
	for lo := 0; lo < len(entries); lo += e.batchSize {
		hi := min(lo+e.batchSize, len(entries))
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, transient(err, "fanout pacing")
			}
		}
		appended, err := e.inbox.BulkAppend(ctx, entries[lo:hi])
		if err != nil {
			logger.Warn("fanout chunk failed",
				zap.String("post_id", post.ID),
				zap.Int("chunk", res.Chunks),
				zap.Int("inserted_so_far", res.Inserted),
				zap.Error(err))
			return nil, transient(err, fmt.Sprintf("append chunk %d", res.Chunks))
		}
		res.Chunks++
		res.Inserted += len(appended.Inserted)
		res.Skipped += len(appended.Skipped)
	}

	span.SetAttributes(attribute.Int("fanout.inserted", res.Inserted), attribute.Int("fanout.chunks", res.Chunks))
	logger.Info("fanout done",
		zap.String("post_id", post.ID),
		zap.Int("recipients", res.Recipients),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("chunks", res.Chunks),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// deliverySet 作者在前，粉丝去重
func deliverySet(authorID string, followerIDs []string) []string {
	out := make([]string, 0, len(followerIDs)+1)
	seen := make(map[string]struct{}, len(followerIDs)+1)
	out = append(out, authorID)
	seen[authorID] = struct{}{}
	for _, id := range followerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// transient 把分类之外的错误（如 ctx 取消、Redis 故障）归为可重试
func transient(err error, msg string) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Transient(err, msg)
}
