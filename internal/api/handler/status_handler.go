package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/fieldops-be/internal/api/dto"
	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/queue"
	"github.com/cuongbtq/fieldops-be/internal/workflow"
	"github.com/gin-gonic/gin"
)

// StatusHandler applies job status changes, directly or through the queue
type StatusHandler struct {
	logger    *slog.Logger
	engine    *workflow.Engine
	publisher queue.Publisher
	now       func() time.Time
}

// NewStatusHandler creates a new StatusHandler instance
func NewStatusHandler(deps *Dependencies) *StatusHandler {
	return &StatusHandler{
		logger:    deps.Logger,
		engine:    deps.Engine,
		publisher: deps.Publisher,
		now:       deps.now,
	}
}

// UpdateStatus handles PATCH /api/v1/jobs/:job_id/status
func (h *StatusHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	status, err := domain.ParseJobStatus(req.Status)
	if err != nil {
		respondError(c, h.logger, "Invalid status", err)
		return
	}
	loc, err := queue.GeoPoint(req.Latitude, req.Longitude)
	if err != nil {
		respondError(c, h.logger, "Invalid location", err)
		return
	}

	job, err := h.engine.Transition(c.Request.Context(), workflow.TransitionRequest{
		JobID:    id,
		Status:   status,
		ActorID:  Actor(c).ID,
		Notes:    req.Notes,
		Location: loc,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to update job status", err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// EnqueueStatusUpdate handles POST /api/v1/jobs/:job_id/status-updates.
// The update is validated, published and applied later by the worker service.
func (h *StatusHandler) EnqueueStatusUpdate(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "status update queue is not configured",
		})
		return
	}

	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	msg := queue.NewStatusUpdate(id, Actor(c).ID, req.Status, req.Notes, req.Latitude, req.Longitude, h.now())
	if _, err := msg.Request(); err != nil {
		respondError(c, h.logger, "Invalid status update", err)
		return
	}

	if err := h.publisher.PublishStatusUpdate(c.Request.Context(), msg); err != nil {
		h.logger.Error("Failed to publish status update",
			slog.Int64("job_id", id),
			slog.String("message_id", msg.MessageID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to enqueue status update",
		})
		return
	}

	h.logger.Info("Status update enqueued",
		slog.Int64("job_id", id),
		slog.String("status", msg.Status),
		slog.String("message_id", msg.MessageID),
	)

	c.JSON(http.StatusAccepted, dto.StatusUpdateAcceptedResponse{
		MessageID: msg.MessageID,
		JobID:     id,
		Status:    msg.Status,
	})
}
