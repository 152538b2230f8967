package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/freshflower-auth/pkg/response"
)

// Pinger is anything whose availability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Storage Pinger
	Logger  *logrus.Logger
}

func NewHealthHandler(storage Pinger, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{Storage: storage, Logger: logger}
}

// Health GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Storage.Ping(ctx); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("health check: storage ping failed")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "storage unavailable", "storage ping failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"storage": "ok"}, "healthy", nil)
}
