package handlers

import (
	"strconv"

	"catastro-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NotificationHandler handles HTTP requests for notifications. Every route
// is scoped to the authenticated recipient; there is no way to read or
// mark another user's notifications.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.notifications.List(c.Request.Context(), currentActor(c).UserID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, notifications)
}

// CountUnread handles GET /api/notifications/unread
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	count, err := h.notifications.CountUnread(c.Request.Context(), currentActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"unread": count})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid notification ID format")
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id, currentActor(c).UserID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"read": true})
}
