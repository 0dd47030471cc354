package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/service"
)

// Handler 聚合各业务服务，actor 由 middleware.Auth 注入
type Handler struct {
	accounts   *service.AccountService
	relService service.RelationshipService
	publisher  *service.Publisher
	posts      *service.PostService
	timeline   *service.TimelineService
	likes      *service.LikeService
	comments   *service.CommentService
	cleanup    *service.CleanupService
}

func New(
	accounts *service.AccountService,
	relService service.RelationshipService,
	publisher *service.Publisher,
	posts *service.PostService,
	timeline *service.TimelineService,
	likes *service.LikeService,
	comments *service.CommentService,
	cleanup *service.CleanupService,
) *Handler {
	return &Handler{
		accounts:   accounts,
		relService: relService,
		publisher:  publisher,
		posts:      posts,
		timeline:   timeline,
		likes:      likes,
		comments:   comments,
		cleanup:    cleanup,
	}
}

// pageParams 解析 cursor/limit；不支持 offset
func pageParams(c *gin.Context) (string, int, error) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", 0, apperr.Invalid("limit must be a non-negative integer")
		}
		limit = n
	}
	return c.Query("cursor"), limit, nil
}
