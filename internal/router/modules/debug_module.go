package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/freshflower-auth/internal/container"
	handlers "github.com/oksasatya/freshflower-auth/internal/interface/http"
	"github.com/oksasatya/freshflower-auth/internal/interface/middleware"
)

// DebugModule exposes the health probe and, when enabled, expvar metrics.
type DebugModule struct {
	Health *handlers.HealthHandler
}

func NewDebugModule(h *handlers.HealthHandler) *DebugModule { return &DebugModule{Health: h} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Health.Health)

	cfg := container.GetConfig()
	if !cfg.DebugMetricsEnabled {
		return
	}
	rl := middleware.RateLimit(container.GetRedis(), 120, cfg.RateLimitWindow, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
