package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

type signupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup 注册
// @Summary 注册
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body signupRequest true "注册信息"
// @Success 201 {object} response.Response{data=service.AuthResult}
// @Failure 409 {object} response.Response "用户名或邮箱已存在"
// @Router /api/v1/accounts/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.accounts.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Login 登录
// @Summary 登录
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=service.AuthResult}
// @Failure 401 {object} response.Response
// @Router /api/v1/accounts/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// DeleteAccount 注销当前账号，级联删除帖子、时间线与关注关系
// @Summary 注销账号
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.CleanupReport}
// @Router /api/v1/accounts/me [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	rep, err := h.cleanup.DeleteUser(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rep)
}
