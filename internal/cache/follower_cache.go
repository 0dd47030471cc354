// Package cache holds the Redis read-through cache in front of follower id reads.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/newsfeed/pkg/logger"
)

const (
	keyPrefix = "followers:ids:"
	genPrefix = "followers:gen:"
	// genTTL 远大于任何一次回源耗时
	genTTL = 24 * time.Hour
)

var errStaleFill = errors.New("follower cache: invalidated during fill")

// sentinel 占据列表首位，使"没有粉丝"也能被缓存（Redis 不保存空列表）
const sentinel = ""

// FollowerCache 以 Redis List 缓存某用户的全部粉丝 id
type FollowerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFollowerCache(client *redis.Client, ttl time.Duration) *FollowerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FollowerCache{client: client, ttl: ttl}
}

func key(userID string) string { return keyPrefix + userID }
func genKey(userID string) string { return genPrefix + userID }

// Get 返回 (ids, 命中与否, err)
func (c *FollowerCache) Get(ctx context.Context, userID string) ([]string, bool, error) {
	vals, err := c.client.LRange(ctx, key(userID), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(vals) == 0 || vals[0] != sentinel {
		return nil, false, nil
	}
	return vals[1:], true, nil
}

// Generation 当前代数，每次 Invalidate +1；没有记录时为 0
func (c *FollowerCache) Generation(ctx context.Context, userID string) (int64, error) {
	n, err := c.client.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Fill 仅当代数仍等于回源前读到的 gen 时写入。
// 回源期间发生过 Invalidate 则放弃写入并返回 false，旧列表不会覆盖失效。
func (c *FollowerCache) Fill(ctx context.Context, userID string, ids []string, gen int64) (bool, error) {
	k, gk := key(userID), genKey(userID)
	vals := make([]any, 0, len(ids)+1)
	vals = append(vals, sentinel)
	for _, id := range ids {
		vals = append(vals, id)
	}
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			pipe.RPush(ctx, k, vals...)
			pipe.Expire(ctx, k, c.ttl)
			return nil
		})
		return err
	}, gk)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

// Invalidate 删除列表并推进代数，使进行中的回填失效
func (c *FollowerCache) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, id := range userIDs {
		pipe.Del(ctx, key(id))
		pipe.Incr(ctx, genKey(id))
		pipe.Expire(ctx, genKey(id), genTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// FollowerIDLister 粉丝 id 的权威来源（FollowRepository）
type FollowerIDLister interface {
	ListFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// CachedFollowerIDs 先读缓存，未命中回源并回填；Redis 故障时直接回源
type CachedFollowerIDs struct {
	cache *FollowerCache
	src   FollowerIDLister

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedFollowerIDs(cache *FollowerCache, src FollowerIDLister) *CachedFollowerIDs {
	return &CachedFollowerIDs{cache: cache, src: src}
}

func (c *CachedFollowerIDs) ListFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	ids, ok, err := c.cache.Get(ctx, userID)
	if err != nil {
		logger.Warn("follower cache read failed", zap.String("user_id", userID), zap.Error(err))
	}
	if ok {
		c.hits.Add(1)
		return ids, nil
	}
	c.misses.Add(1)

	// 代数必须在回源之前读取
	gen, genErr := c.cache.Generation(ctx, userID)
	ids, err = c.src.ListFollowerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		logger.Warn("follower cache generation read failed", zap.String("user_id", userID), zap.Error(genErr))
		return ids, nil
	}
	filled, err := c.cache.Fill(ctx, userID, ids, gen)
	if err != nil {
		logger.Warn("follower cache fill failed", zap.String("user_id", userID), zap.Error(err))
	} else if !filled {
		logger.Debug("follower cache fill skipped, invalidated during read", zap.String("user_id", userID))
	}
	return ids, nil
}

// Invalidate 关注关系变化后调用
func (c *CachedFollowerIDs) Invalidate(ctx context.Context, userIDs ...string) {
	if err := c.cache.Invalidate(ctx, userIDs...); err != nil {
		logger.Warn("follower cache invalidate failed", zap.Strings("user_ids", userIDs), zap.Error(err))
	}
}

// Counters 命中/未命中次数
type Counters struct {
	Hits   int64
	Misses int64
}

func (c *CachedFollowerIDs) Counters() Counters {
	return Counters{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *CachedFollowerIDs) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
}
