package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by /health
type Pinger func(ctx context.Context) error

// HealthHandler reports the status of optional backing services
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a handler. Nil checks are reported as disabled.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	services := gin.H{}
	for name, ping := range h.checks {
		switch {
		case ping == nil:
			services[name] = gin.H{"status": "disabled"}
		case ping(ctx) != nil:
			services[name] = gin.H{"status": "unreachable"}
			status = "degraded"
		default:
			services[name] = gin.H{"status": "ok"}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"services": services,
	})
}
