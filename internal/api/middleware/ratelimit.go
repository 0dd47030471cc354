package middleware

import (
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/newsfeed/pkg/response"
)

// maxTrackedClients 同时保留令牌桶的客户端数，超出按 LRU 淘汰
const maxTrackedClients = 100000

// RateLimit 按 actor（未登录时按 IP）限流；perSecond<=0 时不限流
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	buckets, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return func(c *gin.Context) {
		key := ActorID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		lim, ok := buckets.Get(key)
		if !ok {
			// 并发首请求只保留一个令牌桶
			fresh := rate.NewLimiter(rate.Limit(perSecond), burst)
			if prev, found, _ := buckets.PeekOrAdd(key, fresh); found {
				lim = prev
			} else {
				lim = fresh
			}
		}
		if !lim.Allow() {
			response.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
