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

// N 个用户并发关注同一名人，统计 Follow 延迟，然后用游标翻完粉丝列表
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	n := benchutil.EnvInt("N", 10000)
	conc := benchutil.EnvInt("CONC", 8)
	page := benchutil.EnvInt("PAGE", 50)
	if conc > n {
		conc = n
	}

	if err := benchutil.Reset(db); err != nil {
		panic(err)
	}
	celeb := must(benchutil.SeedUsers(db, "celeb", 1))[0]
	users := must(benchutil.SeedUsers(db, "u", n))

	relSvc := service.NewRelationshipService(
		repository.NewFollowRepository(db),
		repository.NewUserRepository(db, cfg.Database.UserCacheSize, cfg.Database.UserCacheTTL),
		nil,
	)

	feed := make(chan string, n)
	for _, id := range users {
		feed <- id
	}
	close(feed)
	lat := make(chan time.Duration, n)
	errs := make(chan error, conc)

	t0 := time.Now()
	for w := 0; w < conc; w++ {
		go func() {
			var firstErr error
			for id := range feed {
				st := time.Now()
				if _, err := relSvc.Follow(ctx, id, celeb); err != nil && firstErr == nil {
					firstErr = err
				}
				lat <- time.Since(st)
			}
			errs <- firstErr
		}()
	}
	for w := 0; w < conc; w++ {
		if err := <-errs; err != nil {
			fmt.Println("follow error:", err)
		}
	}
	total := time.Since(t0)
	close(lat)
	recs := make([]time.Duration, 0, n)
	for d := range lat {
		recs = append(recs, d)
	}

	var pages []time.Duration
	seen, cursor := 0, ""
	for {
		st := time.Now()
		p, err := relSvc.ListFollowers(ctx, celeb, cursor, page)
		if err != nil {
			panic(err)
		}
		pages = append(pages, time.Since(st))
		seen += len(p.Items)
		if p.NextCursor == "" {
			break
		}
		cursor = p.NextCursor
	}

	st := time.Now()
	_, err := relSvc.ListFollowings(ctx, users[0], "", page)
	if err != nil {
		panic(err)
	}
	follDur := time.Since(st)

	fmt.Printf("N=%d, CONC=%d, PAGE=%d\n", n, conc, page)
	fmt.Printf("Follow latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(n), benchutil.Pct(recs, 0.50), benchutil.Pct(recs, 0.95), benchutil.Pct(recs, 0.99))
	fmt.Printf("Followers walk: rows=%d pages=%d avg=%v p99=%v\n", seen, len(pages), benchutil.Avg(pages), benchutil.Pct(pages, 0.99))
	fmt.Printf("Query followings(%d) latency: %v\n", page, follDur)
}
