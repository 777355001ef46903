package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postr/pkg/response"
)

type relationAction func(ctx context.Context, actorID, targetID string) (bool, error)

// relation 关注/点赞类动作的公共流程：取当前用户、校验目标 ID、执行、输出 bool
func (h *Handler) relation(c *gin.Context, action relationAction) {
	me, ok := actorID(c)
	if !ok {
		return
	}
	target, ok := bindID(c)
	if !ok {
		return
	}
	changed, err := action(c.Request.Context(), me, target)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, changed)
}

// Follow 关注
// @Summary 关注用户（重复关注返回 false）
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param id path string true "被关注用户ID"
// @Success 200 {boolean} boolean
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/actions/follow/{id} [get]
func (h *Handler) Follow(c *gin.Context) {
	h.relation(c, h.relService.Follow)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param id path string true "被关注用户ID"
// @Success 200 {boolean} boolean
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/actions/unfollow/{id} [get]
func (h *Handler) Unfollow(c *gin.Context) {
	h.relation(c, h.relService.Unfollow)
}

// Like 点赞
// @Summary 点赞帖子（重复点赞返回 false）
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {boolean} boolean
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/actions/like/{id} [get]
func (h *Handler) Like(c *gin.Context) {
	h.relation(c, h.relService.Like)
}

// Unlike 取消点赞
// @Summary 取消点赞
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {boolean} boolean
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/actions/unlike/{id} [get]
func (h *Handler) Unlike(c *gin.Context) {
	h.relation(c, h.relService.Unlike)
}
