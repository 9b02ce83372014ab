package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-blog/internal/interface/http"
	"github.com/oksasatya/go-ddd-blog/internal/interface/middleware"
)

// ContentModule serves categories and posts. Reads are public; writes need a staff account.
type ContentModule struct {
	Handler *handlers.ContentHandler
	Auth    middleware.Authenticator
	Redis   *redis.Client
}

func NewContentModule(h *handlers.ContentHandler, auth middleware.Authenticator, rdb *redis.Client) *ContentModule {
	return &ContentModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *ContentModule) Register(rg *gin.RouterGroup) {
	read := middleware.OptionalAuth(m.Auth)
	write := middleware.Auth(m.Auth)
	limiter := middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil)

	categories := rg.Group("/categories", limiter)
	categories.GET("/", read, m.Handler.ListCategories)
	categories.POST("/", write, m.Handler.CreateCategory)
	categories.GET("/:slug/", read, m.Handler.GetCategory)
	categories.PUT("/:slug/", write, m.Handler.UpdateCategory)
	categories.PATCH("/:slug/", write, m.Handler.UpdateCategory)
	categories.DELETE("/:slug/", write, m.Handler.DeleteCategory)

	posts := rg.Group("/posts", limiter)
	posts.GET("/", read, m.Handler.ListPosts)
	posts.POST("/", write, m.Handler.CreatePost)
	posts.GET("/search/", read, m.Handler.SearchPosts)
	posts.GET("/:slug/", read, m.Handler.GetPost)
	posts.PUT("/:slug/", write, m.Handler.UpdatePost)
	posts.PATCH("/:slug/", write, m.Handler.UpdatePost)
	posts.DELETE("/:slug/", write, m.Handler.DeletePost)
}
