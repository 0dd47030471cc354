package main

import (
	"context"
	"fmt"
	"time"

	"github.com/d60-Lab/newsfeed/config"
	"github.com/d60-Lab/newsfeed/internal/benchutil"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/internal/service"
	"github.com/d60-Lab/newsfeed/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// 作者拥有 N 个粉丝，异步发 POSTS 条帖子，统计发帖事务延迟、扇出落地延迟与时间线读取延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	n := benchutil.EnvInt("N", 20000)
	posts := benchutil.EnvInt("POSTS", 100)
	workers := benchutil.EnvInt("WORKERS", 8)
	batch := benchutil.EnvInt("BATCH", 1000)
	claim := benchutil.EnvInt("CLAIM", 64)
	page := benchutil.EnvInt("PAGE", 50)

	if err := benchutil.Reset(db); err != nil {
		panic(err)
	}
	author := must(benchutil.SeedUsers(db, "author", 1))[0]
	fans := must(benchutil.SeedUsers(db, "fan", n))
	if err := benchutil.SeedFollowers(db, author, fans); err != nil {
		panic(err)
	}

	users := repository.NewUserRepository(db, cfg.Database.UserCacheSize, cfg.Database.UserCacheTTL)
	follows := repository.NewFollowRepository(db)
	inbox := repository.NewInboxRepository(db)
	outbox := repository.NewOutboxRepository(db)
	engine := must(service.NewFanoutEngine(follows, inbox, batch))
	publisher := service.NewPublisher(db, users, outbox, engine, service.PublishAsync, cfg.Fanout.Timeout)
	timeline := service.NewTimelineService(inbox, repository.NewPostRepository(db), users)

	worker := service.NewFanoutWorker(outbox, engine, service.WorkerConfig{
		Workers:      workers,
		ClaimLimit:   claim,
		PollInterval: 20 * time.Millisecond,
	})
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = worker.Run(runCtx) }()

	pub := make([]time.Duration, 0, posts)
	for i := 0; i < posts; i++ {
		st := time.Now()
		if _, err := publisher.Publish(ctx, author, fmt.Sprintf("hello world %d", i)); err != nil {
			panic(err)
		}
		pub = append(pub, time.Since(st))
	}

	land := make([]time.Duration, 0, posts)
	timeout := time.After(2 * time.Minute)
collect:
	for len(land) < posts {
		select {
		case d := <-worker.Metrics():
			land = append(land, d)
		case <-timeout:
			fmt.Printf("timeout while waiting for fanout metrics: got=%d want=%d\n", len(land), posts)
			break collect
		}
	}

	fmt.Printf("N=%d POSTS=%d WORKERS=%d BATCH=%d CLAIM=%d\n", n, posts, workers, batch, claim)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n", benchutil.Avg(pub), benchutil.Pct(pub, 0.95), benchutil.Pct(pub, 0.99))
	fmt.Printf("Fanout landing (post->done): samples=%d avg=%v p95=%v p99=%v\n",
		len(land), benchutil.Avg(land), benchutil.Pct(land, 0.95), benchutil.Pct(land, 0.99))

	var reads []time.Duration
	cursor := ""
	for i := 0; i < 5; i++ {
		st := time.Now()
		p, err := timeline.GetTimeline(ctx, fans[0], cursor, page)
		if err != nil {
			panic(err)
		}
		reads = append(reads, time.Since(st))
		if p.NextCursor == "" {
			break
		}
		cursor = p.NextCursor
	}
	fmt.Printf("Timeline read (fan0, limit=%d): pages=%d avg=%v max=%v\n", page, len(reads), benchutil.Avg(reads), benchutil.Pct(reads, 1))
}
