package router

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/newsfeed/docs"
	"github.com/d60-Lab/newsfeed/internal/api/handler"
	"github.com/d60-Lab/newsfeed/internal/api/middleware"
	"github.com/d60-Lab/newsfeed/pkg/response"
)

// Options 路由层依赖的配置
type Options struct {
	Mode        string
	ServiceName string
	RateLimit   float64
	RateBurst   int
	Swagger     bool
}

// Setup 注册全部路由
func Setup(opts Options, h *handler.Handler, tokens middleware.TokenParser) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		otelgin.Middleware(opts.ServiceName),
		middleware.AccessLog(),
		gzip.Gzip(gzip.DefaultCompression),
	)

	r.GET("/healthz", func(c *gin.Context) { response.Success(c, gin.H{"status": "ok"}) })
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")

	accounts := v1.Group("/accounts")
	accounts.Use(middleware.RateLimit(opts.RateLimit, opts.RateBurst))
	{
		accounts.POST("/signup", h.Signup)
		accounts.POST("/login", h.Login)
	}

	authed := v1.Group("")
	authed.Use(middleware.Auth(tokens), middleware.RateLimit(opts.RateLimit, opts.RateBurst))
	{
		authed.DELETE("/accounts/me", h.DeleteAccount)

		rel := authed.Group("/relations")
		rel.POST("/:user_id/follow", h.Follow)
		rel.POST("/:user_id/unfollow", h.Unfollow)
		rel.GET("/:user_id/followers", h.ListFollowers)
		rel.GET("/:user_id/followings", h.ListFollowings)

		authed.POST("/posts", h.CreatePost)
		authed.GET("/posts", h.ListPosts)
		authed.GET("/posts/:post_id", h.GetPost)
		authed.DELETE("/posts/:post_id", h.DeletePost)
		authed.GET("/posts/:post_id/comments", h.ListComments)

		authed.POST("/comments", h.CreateComment)
		authed.PUT("/comments/:comment_id", h.UpdateComment)
		authed.DELETE("/comments/:comment_id", h.DeleteComment)

		authed.GET("/timeline", h.Timeline)

		authed.POST("/likes", h.Like)
		authed.DELETE("/likes", h.Unlike)
		authed.GET("/likes/count", h.CountLikes)
	}
	return r
}
