package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

// Timeline 当前用户的时间线
// @Summary 时间线
// @Tags 时间线
// @Produce json
// @Security BearerAuth
// @Param cursor query string false "上一页返回的 next_cursor"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=pagination.Page[service.TimelineItem]}
// @Failure 400 {object} response.Response "cursor 非法"
// @Router /api/v1/timeline [get]
func (h *Handler) Timeline(c *gin.Context) {
	cursor, limit, err := pageParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.timeline.GetTimeline(c.Request.Context(), middleware.ActorID(c), cursor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}
