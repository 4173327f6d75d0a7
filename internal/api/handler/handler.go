package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/jobs"
	"github.com/cuongbtq/fieldops-be/internal/notification"
	"github.com/cuongbtq/fieldops-be/internal/queue"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/gin-gonic/gin"
)

// ActorKey is the gin context key holding the authenticated *domain.Principal
const ActorKey = "actor"

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Store         store.Store
	Jobs          *jobs.Service
	Engine        *workflow.Engine
	Notifications *notification.Service

	// Publisher is nil when RabbitMQ is disabled; queued status updates are
	// then refused.
	Publisher queue.Publisher

	// HealthChecks are reported by /health next to the store ping
	HealthChecks map[string]HealthCheck

	ServiceName string
	Now         func() time.Time
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// Actor returns the principal set by the actor middleware
func Actor(c *gin.Context) *domain.Principal {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}

// StatusCode maps an error kind to an HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal details are logged, not returned.
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		logger.Error(msg,
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path),
			slog.String("request_id", c.GetString(RequestIDKey)),
		)
		c.JSON(code, gin.H{
			"error": msg,
		})
		return
	}

	logger.Debug(msg,
		slog.String("error", err.Error()),
		slog.Int("status", code),
	)
	c.JSON(code, gin.H{
		"error": err.Error(),
	})
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": name + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}
