package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.List(c.Request.Context(), profileID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         len(notifications),
	})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	id, ok := parseID(c, "notification")
	if !ok {
		return
	}
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), id, profileID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Notification deleted"})
}

// ClearNotifications deletes every notification of the caller
func (h *NotificationHandler) ClearNotifications(c *gin.Context) {
	profileID, ok := callerProfile(c)
	if !ok {
		return
	}

	deleted, err := h.notificationService.Clear(c.Request.Context(), profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": deleted})
}
