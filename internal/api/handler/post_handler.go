package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/pkg/response"
)

type postRequest struct {
	Content string `json:"content" binding:"required"`
}

type postsResponse struct {
	Posts []*model.Post `json:"posts"`
}

type postVersionsResponse struct {
	PostVersions []*model.PostVersion `json:"post_versions"`
}

// CreatePost 发帖
// @Summary 发布帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "帖子内容"
// @Success 200 {boolean} boolean
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/post [post]
func (h *Handler) CreatePost(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	created, err := h.postService.Create(c.Request.Context(), me, req.Content)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, created)
}

// ListOwnPosts 自己的帖子
// @Summary 列出自己的帖子
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Success 200 {object} postsResponse
// @Failure 401 {object} response.Response
// @Router /api/post [get]
func (h *Handler) ListOwnPosts(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	posts, err := h.postService.ListOwn(c.Request.Context(), me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, postsResponse{Posts: posts})
}

// GetPost 查询帖子
// @Summary 查询自己的单个帖子
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} model.Post
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/post/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	p, err := h.postService.Get(c.Request.Context(), id, me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePost 修改帖子，旧内容进入历史版本
// @Summary 修改帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body postRequest true "新内容"
// @Success 200 {object} model.Post
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/post/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.postService.Update(c.Request.Context(), id, me, req.Content)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 软删除
// @Summary 删除帖子
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {boolean} boolean
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/post/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	deleted, err := h.postService.Delete(c.Request.Context(), id, me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, deleted)
}

// PostHistory 修改历史
// @Summary 帖子修改历史
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} postVersionsResponse
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/post/{id}/edits [get]
func (h *Handler) PostHistory(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	versions, err := h.postService.History(c.Request.Context(), id, me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, postVersionsResponse{PostVersions: versions})
}

// PostLikers 点赞用户
// @Summary 点赞了该帖子的用户
// @Tags 帖子
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} publicUsersResponse
// @Failure 400 {object} response.Response
// @Router /api/post/{id}/likes [get]
func (h *Handler) PostLikers(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	users, err := h.postService.Likers(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, publicUsersResponse{Users: users})
}

// Feed 关注者的帖子流
// @Summary 首页 feed
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Success 200 {object} postsResponse
// @Failure 401 {object} response.Response
// @Router /api/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	posts, err := h.feedService.Feed(c.Request.Context(), me)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, postsResponse{Posts: posts})
}
