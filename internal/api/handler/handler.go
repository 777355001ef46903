package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/postr/internal/middleware"
	"github.com/d60-Lab/postr/internal/service"
	"github.com/d60-Lab/postr/pkg/response"
)

// Handler 聚合全部 HTTP 处理函数
type Handler struct {
	userService service.UserService
	postService service.PostService
	relService  service.RelationshipService
	feedService service.FeedService
	ping        func(ctx context.Context) error
}

func NewHandler(
	userService service.UserService,
	postService service.PostService,
	relService service.RelationshipService,
	feedService service.FeedService,
	ping func(ctx context.Context) error,
) *Handler {
	return &Handler{
		userService: userService,
		postService: postService,
		relService:  relService,
		feedService: feedService,
		ping:        ping,
	}
}

// idURI 路径中的资源 ID 必须是 uuid
type idURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

func bindID(c *gin.Context) (string, bool) {
	var uri idURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return "", false
	}
	return uri.ID, true
}

// actorID 当前登录用户；路由未挂 Auth 时返回 401
func actorID(c *gin.Context) (string, bool) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		renderError(c, service.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

// Health 存活检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} response.Response
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NoRoute 未匹配的路由
func (h *Handler) NoRoute(c *gin.Context) {
	response.NotFound(c, "request path not found")
}
