package api

import (
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/postr/docs"
	"github.com/d60-Lab/postr/internal/api/handler"
	"github.com/d60-Lab/postr/internal/middleware"
)

// RouterOptions 路由装配参数
type RouterOptions struct {
	Mode          string
	CORSOrigins   []string
	StoreDeadline time.Duration
	// TracingService 非空时挂载 otelgin 中间件
	TracingService string
	Swagger        bool
}

func NewRouter(h *handler.Handler, verifier middleware.TokenVerifier, opts RouterOptions) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.TracingService != "" {
		r.Use(otelgin.Middleware(opts.TracingService))
	}
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", h.Health)
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authed := middleware.Auth(verifier)
	api := r.Group("/api", middleware.StoreDeadline(opts.StoreDeadline))

	user := api.Group("/user")
	{
		user.POST("", h.Register)
		user.GET("", h.ListUsers)
		user.POST("/login", h.Login)
		user.GET("/follows", authed, h.ListFollowing)
		user.GET("/followers", authed, h.ListFollowers)
		user.GET("/likes", authed, h.ListLikedPosts)
		user.GET("/:id", authed, h.GetUser)
	}

	post := api.Group("/post")
	{
		post.POST("", authed, h.CreatePost)
		post.GET("", authed, h.ListOwnPosts)
		post.GET("/:id", authed, h.GetPost)
		post.PUT("/:id", authed, h.UpdatePost)
		post.DELETE("/:id", authed, h.DeletePost)
		post.GET("/:id/edits", authed, h.PostHistory)
		post.GET("/:id/likes", h.PostLikers)
	}

	api.GET("/feed", authed, h.Feed)

	actions := api.Group("/actions", authed)
	{
		actions.GET("/like/:id", h.Like)
		actions.GET("/unlike/:id", h.Unlike)
		actions.GET("/follow/:id", h.Follow)
		actions.GET("/unfollow/:id", h.Unfollow)
	}

	r.NoRoute(h.NoRoute)
	return r
}
