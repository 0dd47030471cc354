package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/newsfeed/config"
	"github.com/d60-Lab/newsfeed/internal/benchutil"
	"github.com/d60-Lab/newsfeed/internal/cache"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// 三个作者各有 N/2 粉丝（相互重叠），对比扇出读粉丝 id 时直连数据库与 Redis 读穿缓存
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	ctx := context.Background()

	n := benchutil.EnvInt("N", 20000)
	reqs := benchutil.EnvInt("REQS", 3000)

	if err := benchutil.Reset(db); err != nil {
		panic(err)
	}
	authors := must(benchutil.SeedUsers(db, "author", 3))
	fans := must(benchutil.SeedUsers(db, "fan", n))
	half := n / 2
	for i, author := range authors {
		start := i * n / 4
		set := make([]string, 0, half)
		for j := 0; j < half; j++ {
			set = append(set, fans[(start+j)%n])
		}
		if err := benchutil.SeedFollowers(db, author, set); err != nil {
			panic(err)
		}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("redis %s: %v", cfg.Redis.Addr, err))
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		panic(err)
	}

	follows := repository.NewFollowRepository(db)
	cached := cache.NewCachedFollowerIDs(cache.NewFollowerCache(client, cfg.Redis.FollowerTTL), follows)

	rnd := rand.New(rand.NewSource(1))
	order := make([]string, reqs)
	for i := range order {
		order[i] = authors[rnd.Intn(len(authors))]
	}

	measure := func(list func(context.Context, string) ([]string, error)) []time.Duration {
		out := make([]time.Duration, 0, len(order))
		for _, id := range order {
			st := time.Now()
			if _, err := list(ctx, id); err != nil {
				panic(err)
			}
			out = append(out, time.Since(st))
		}
		return out
	}

	direct := measure(follows.ListFollowerIDs)
	warm := measure(cached.ListFollowerIDs)
	counters := cached.Counters()

	// 每轮都有关注变化：读之前先失效
	cached.ResetCounters()
	churn := measure(func(ctx context.Context, id string) ([]string, error) {
		cached.Invalidate(ctx, id)
		return cached.ListFollowerIDs(ctx, id)
	})
	churnCounters := cached.Counters()

	var mem int64
	for _, a := range authors {
		mem += client.MemoryUsage(ctx, "followers:ids:"+a).Val()
	}

	fmt.Printf("N=%d REQS=%d followers/author=%d\n", n, reqs, half)
	fmt.Printf("%-14s avg=%v p95=%v p99=%v\n", "No cache", benchutil.Avg(direct), benchutil.Pct(direct, 0.95), benchutil.Pct(direct, 0.99))
	fmt.Printf("%-14s avg=%v p95=%v p99=%v hits=%d misses=%d mem=%dB\n", "Read-through",
		benchutil.Avg(warm), benchutil.Pct(warm, 0.95), benchutil.Pct(warm, 0.99), counters.Hits, counters.Misses, mem)
	fmt.Printf("%-14s avg=%v p95=%v p99=%v hits=%d misses=%d\n", "Invalidate+get",
		benchutil.Avg(churn), benchutil.Pct(churn, 0.95), benchutil.Pct(churn, 0.99), churnCounters.Hits, churnCounters.Misses)
}
