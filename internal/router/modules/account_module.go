package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-blog/internal/interface/http"
	"github.com/oksasatya/go-ddd-blog/internal/interface/middleware"
)

// AccountModule wires account HTTP handlers into routes.
// Public: register, login, logout, token refresh
// Protected: profile, change-password, deactivate, delete
type AccountModule struct {
	Handler *handlers.AccountHandler
	Auth    middleware.Authenticator
	Redis   *redis.Client
}

func NewAccountModule(h *handlers.AccountHandler, auth middleware.Authenticator, rdb *redis.Client) *AccountModule {
	return &AccountModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	// per IP and route: 10 req/min for credentials, 60 req/min for token calls
	credLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	tokenLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	accounts := rg.Group("/accounts")
	accounts.POST("/register/", credLimiter, m.Handler.Register)
	accounts.POST("/login/", credLimiter, m.Handler.Login)
	accounts.POST("/logout/", tokenLimiter, m.Handler.Logout)
	accounts.POST("/token/refresh/", tokenLimiter, m.Handler.Refresh)

	auth := accounts.Group("")
	auth.Use(
		middleware.Auth(m.Auth),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/", m.Handler.GetProfile)
		auth.GET("/profile/", m.Handler.GetProfile)
		auth.PUT("/profile/", m.Handler.UpdateProfile)
		auth.PATCH("/profile/", m.Handler.UpdateProfile)
		auth.PUT("/change-password/", m.Handler.ChangePassword)
		auth.POST("/deactivate/", m.Handler.Deactivate)
		auth.DELETE("/delete/", m.Handler.Delete)
	}
}
