package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports service and dependency health
type HealthHandler struct {
	store   store.Store
	checks  map[string]HealthCheck
	service string
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		store:   deps.Store,
		checks:  deps.HealthChecks,
		service: deps.ServiceName,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := map[string]HealthCheck{"store": h.store.Ping}
	for name, check := range h.checks {
		checks[name] = check
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	code := http.StatusOK
	status := "healthy"
	results := gin.H{}
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			results[name] = err.Error()
			code = http.StatusServiceUnavailable
			status = "unhealthy"
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": h.service,
		"checks":  results,
	})
}
