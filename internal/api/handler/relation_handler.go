package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

// Follow 关注用户
// @Summary 关注用户
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "被关注的用户ID"
// @Success 201 {object} response.Response{data=model.Follow}
// @Failure 400 {object} response.Response "不能关注自己"
// @Failure 404 {object} response.Response "用户不存在"
// @Failure 409 {object} response.Response "已关注"
// @Router /api/v1/relations/{user_id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	f, err := h.relService.Follow(c.Request.Context(), middleware.ActorID(c), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, f)
}

// Unfollow 取消关注，重复取消返回 deleted=0
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "被取消关注的用户ID"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/{user_id}/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	n, err := h.relService.Unfollow(c.Request.Context(), middleware.ActorID(c), c.Param("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}

// ListFollowings 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "用户ID"
// @Param cursor query string false "上一页返回的 next_cursor"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pagination.Page[service.FollowView]}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/followings [get]
func (h *Handler) ListFollowings(c *gin.Context) {
	cursor, limit, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.relService.ListFollowings(c.Request.Context(), c.Param("user_id"), cursor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "用户ID"
// @Param cursor query string false "上一页返回的 next_cursor"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pagination.Page[service.FollowView]}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	cursor, limit, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.relService.ListFollowers(c.Request.Context(), c.Param("user_id"), cursor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}
