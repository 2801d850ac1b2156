package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 3 * time.Second

// ReadinessChecks are run by /readyz, keyed by dependency name.
type ReadinessChecks map[string]func(ctx context.Context) error

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	authReady   func() bool
	checks      ReadinessChecks
}

func NewHealthHandler(serviceName string, authReady func() bool, checks ReadinessChecks) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, authReady: authReady, checks: checks}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": h.serviceName, "status": "ok"})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready runs every check and reports the failing ones with 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	failures := gin.H{}
	if h.authReady != nil && !h.authReady() {
		failures["auth"] = "initializing"
	}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
