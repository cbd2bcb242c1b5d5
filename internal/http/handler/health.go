package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type ReadinessProbe interface {
	Ready() bool
}

type HealthHandler struct {
	checks    map[string]Check
	readiness ReadinessProbe
	timeout   time.Duration
}

func NewHealthHandler(checks map[string]Check, readiness ReadinessProbe) *HealthHandler {
	return &HealthHandler{checks: checks, readiness: readiness, timeout: 2 * time.Second}
}

// Health reports each dependency and answers 503 when any of them is down.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "ok"
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = "degraded"
			continue
		}
		results[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": results})
}

// Ready answers 200 once startup recovery has re-enqueued every incomplete event.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.readiness == nil || !h.readiness.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "recovering"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
