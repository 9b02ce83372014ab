package modules

import (
	"expvar"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-blog/internal/interface/http"
	"github.com/oksasatya/go-ddd-blog/internal/interface/middleware"
)

type HealthModule struct {
	Handler *handlers.HealthHandler
	Redis   *redis.Client
}

func NewHealthModule(h *handlers.HealthHandler, rdb *redis.Client) *HealthModule {
	return &HealthModule{Handler: h, Redis: rdb}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	// liveness is never throttled; probes and scrapers on private networks bypass the limit
	live := path.Join(rg.BasePath(), "/health/live")
	rl := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIPAndPath(),
		middleware.AnyOf(middleware.AllowPathPrefix(live), middleware.AllowPrivateIP()))

	rg.GET("/health/live", rl, m.Handler.Live)
	rg.GET("/health/ready", rl, m.Handler.Ready)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
