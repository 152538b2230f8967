package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/freshflower-auth/internal/container"
	handlers "github.com/oksasatya/freshflower-auth/internal/interface/http"
	"github.com/oksasatya/freshflower-auth/internal/interface/middleware"
)

// AuthModule wires registration and login under /auth.
// Public: POST /auth/register, POST /auth/login, GET /auth/exists
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()

	var allow middleware.AllowFunc
	if cfg.Env == "development" {
		allow = middleware.AllowPrivateIP()
	}
	registerLimiter := middleware.RateLimit(rdb, cfg.RateLimitRegister, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), allow)
	loginLimiter := middleware.RateLimit(rdb, cfg.RateLimitLogin, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), allow)
	lookupLimiter := middleware.RateLimit(rdb, cfg.RateLimitLogin, cfg.RateLimitWindow, middleware.KeyByIP(), allow)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", registerLimiter, m.Handler.Register)
		auth.POST("/login", loginLimiter, m.Handler.Login)
		auth.GET("/exists", lookupLimiter, m.Handler.Exists)
	}
}
