package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

type createPostRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreatePost 发帖并扇出到粉丝时间线
// @Summary 发帖
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "帖子内容（6-140 字符）"
// @Success 201 {object} response.Response{data=service.PublishResult}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.publisher.Publish(c.Request.Context(), middleware.ActorID(c), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListPosts 某用户的帖子，默认当前用户
// @Summary 帖子列表
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "用户ID，默认自己"
// @Param cursor query string false "上一页返回的 next_cursor"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pagination.Page[service.PostView]}
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	cursor, limit, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	actorID := middleware.ActorID(c)
	userID := c.DefaultQuery("user_id", actorID)
	page, err := h.posts.ListByUser(c.Request.Context(), actorID, userID, cursor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// GetPost 帖子详情，附带点赞数与第一页评论
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=service.PostDetail}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	d, err := h.posts.Get(c.Request.Context(), middleware.ActorID(c), c.Param("post_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, d)
}

// DeletePost 作者删帖，同时删除所有时间线中的条目
// @Summary 删帖
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=service.CleanupReport}
// @Failure 403 {object} response.Response "非作者"
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	rep, err := h.cleanup.DeletePost(c.Request.Context(), middleware.ActorID(c), c.Param("post_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}
