package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

type createCommentRequest struct {
	PostID  string `json:"post_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateComment 评论帖子
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createCommentRequest true "帖子ID与评论内容（1-140 字符）"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response "帖子不存在"
// @Router /api/v1/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.comments.Create(c.Request.Context(), middleware.ActorID(c), req.PostID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cm)
}

// UpdateComment 修改自己的评论
// @Summary 修改评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param comment_id path string true "评论ID"
// @Param request body updateCommentRequest true "新内容"
// @Success 200 {object} response.Response{data=model.Comment}
// @Failure 403 {object} response.Response "非评论作者"
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{comment_id} [put]
func (h *Handler) UpdateComment(c *gin.Context) {
	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.comments.Update(c.Request.Context(), middleware.ActorID(c), c.Param("comment_id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cm)
}

// DeleteComment 删除自己的评论及其点赞
// @Summary 删除评论
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param comment_id path string true "评论ID"
// @Success 200 {object} response.Response{data=service.CleanupReport}
// @Failure 403 {object} response.Response "非评论作者"
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{comment_id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	rep, err := h.comments.Delete(c.Request.Context(), middleware.ActorID(c), c.Param("comment_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}

// ListComments 帖子下的评论，最早的在前
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Security BearerAuth
// @Param post_id path string true "帖子ID"
// @Param cursor query string false "上一页返回的 next_cursor"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pagination.Page[service.CommentView]}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	cursor, limit, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.comments.ListByPost(c.Request.Context(), c.Param("post_id"), cursor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}
