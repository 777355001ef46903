package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/internal/service"
	"github.com/d60-Lab/postr/pkg/response"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,max=128"`
	Password string `json:"password" binding:"required"`
}

// loginRequest username 与 email 二选一
type loginRequest struct {
	Username string `json:"username" binding:"required_without=Email"`
	Email    string `json:"email" binding:"required_without=Username"`
	Password string `json:"password" binding:"required"`
}

type usersResponse struct {
	Users []*model.User `json:"users"`
}

type publicUsersResponse struct {
	Users []*model.UserPublic `json:"users"`
}

// Register 注册
// @Summary 注册用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 200 {boolean} boolean
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/user [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	ok, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, ok)
}

// ListUsers 用户列表
// @Summary 列出全部用户
// @Tags 用户
// @Produce json
// @Success 200 {object} usersResponse
// @Failure 500 {object} response.Response
// @Router /api/user [get]
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	if users == nil {
		users = make([]*model.User, 0)
	}
	response.Success(c, usersResponse{Users: users})
}

// GetUser 查询用户
// @Summary 查询单个用户
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} model.User
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/user/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	u, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, u)
}

// Login 登录
// @Summary 用户名或邮箱登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/user/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.userService.Login(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, res)
}

// ListFollowing 当前用户关注的人
// @Summary 关注列表
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Success 200 {object} publicUsersResponse
// @Failure 401 {object} response.Response
// @Router /api/user/follows [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	users, err := h.relService.ListFollowing(c.Request.Context(), me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, publicUsersResponse{Users: users})
}

// ListFollowers 当前用户的粉丝
// @Summary 粉丝列表
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Success 200 {object} publicUsersResponse
// @Failure 401 {object} response.Response
// @Router /api/user/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	users, err := h.relService.ListFollowers(c.Request.Context(), me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, publicUsersResponse{Users: users})
}

// ListLikedPosts 当前用户点赞过的帖子
// @Summary 点赞列表
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Success 200 {object} postsResponse
// @Failure 401 {object} response.Response
// @Router /api/user/likes [get]
func (h *Handler) ListLikedPosts(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	posts, err := h.relService.LikedPosts(c.Request.Context(), me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, postsResponse{Posts: posts})
}
