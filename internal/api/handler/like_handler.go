package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

type likeRequest struct {
	TargetKind string `json:"target_kind" form:"target_kind" binding:"required,oneof=post comment"`
	TargetID   string `json:"target_id" form:"target_id" binding:"required"`
}

// Like 点赞帖子或评论
// @Summary 点赞
// @Tags 点赞
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body likeRequest true "点赞对象"
// @Success 201 {object} response.Response{data=model.Like}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response "已点赞"
// @Router /api/v1/likes [post]
func (h *Handler) Like(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	l, err := h.likes.Like(c.Request.Context(), middleware.ActorID(c), model.TargetKind(req.TargetKind), req.TargetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, l)
}

// Unlike 取消点赞
// @Summary 取消点赞
// @Tags 点赞
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body likeRequest true "点赞对象"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/v1/likes [delete]
func (h *Handler) Unlike(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.likes.Unlike(c.Request.Context(), middleware.ActorID(c), model.TargetKind(req.TargetKind), req.TargetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}

// CountLikes 点赞数
// @Summary 点赞数
// @Tags 点赞
// @Produce json
// @Security BearerAuth
// @Param target_kind query string true "post 或 comment"
// @Param target_id query string true "对象ID"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/v1/likes/count [get]
func (h *Handler) CountLikes(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.likes.CountFor(c.Request.Context(), model.TargetKind(req.TargetKind), req.TargetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"count": n})
}
