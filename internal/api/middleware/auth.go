package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/pkg/response"
)

const actorKey = "actor_id"

// TokenParser 校验 token 并返回 actor id（AccountService）
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// Auth 要求 Authorization: Bearer <jwt>，通过后把 actor id 放入 gin.Context
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			response.Unauthorized(c, "missing or malformed Authorization header")
			c.Abort()
			return
		}
		actorID, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		c.Set(actorKey, actorID)
		c.Next()
	}
}

// ActorID 当前请求的 actor；未经过 Auth 时为空
func ActorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
