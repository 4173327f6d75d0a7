package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/fieldops-be/internal/api/dto"
	"github.com/cuongbtq/fieldops-be/internal/notification"
	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the inbox of the calling principal
type NotificationHandler struct {
	logger        *slog.Logger
	notifications *notification.Service
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:        deps.Logger,
		notifications: deps.Notifications,
	}
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.notifications.List(c.Request.Context(), Actor(c).ID, req.Unread)
	if err != nil {
		respondError(c, h.logger, "Failed to list notifications", err)
		return
	}

	c.JSON(http.StatusOK, dto.ListNotificationsResponse{
		Notifications: list,
		Count:         len(list),
	})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.CountUnread(c.Request.Context(), Actor(c).ID)
	if err != nil {
		respondError(c, h.logger, "Failed to count notifications", err)
		return
	}

	c.JSON(http.StatusOK, dto.UnreadCountResponse{Unread: n})
}

// MarkRead handles POST /api/v1/notifications/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "notification_id")
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), Actor(c).ID, id)
	if err != nil {
		respondError(c, h.logger, "Failed to mark notification read", err)
		return
	}

	c.JSON(http.StatusOK, n)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), Actor(c).ID)
	if err != nil {
		respondError(c, h.logger, "Failed to mark notifications read", err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: n})
}
