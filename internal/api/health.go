package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// HealthHandler reports whether the service can reach its dependencies.
type HealthHandler struct {
	checks map[string]Check
	logger *zap.Logger
}

func NewHealthHandler(checks map[string]Check, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Check handles GET /api/v1/healthcheck
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			respond(c, http.StatusServiceUnavailable,
				gin.H{"status": "unavailable", "dependency": name},
				name+" is unreachable")
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"}, "Health check passed")
}
