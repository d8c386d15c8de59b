package handlers

import (
	"context"
	"net/http"

	"craftsmen_front/internal/services"

	"github.com/gin-gonic/gin"
)

// NotificationService - то, что хендлер берет у services.NotificationSync
type NotificationService interface {
	Snapshot() services.NotificationSnapshot
	Fetch(ctx context.Context) error
	UnreadCount() int
	MarkAsRead(ctx context.Context, notificationID string) error
	MarkAllAsRead(ctx context.Context) error
}

type NotificationHandler struct {
	*BaseHandler
	notifications NotificationService
}

func NewNotificationHandler(base *BaseHandler, notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:   base,
		notifications: notifications,
	}
}

func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.GetNotifications)
		notifications.POST("/refresh", h.Refresh)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PUT("/:notificationId/read", h.MarkAsRead)
		notifications.PUT("/read-all", h.MarkAllAsRead)
	}
}

// GetNotifications отдает кэш без обращения к серверу
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.notifications.Snapshot())
}

// Refresh - внеочередной fetch
func (h *NotificationHandler) Refresh(c *gin.Context) {
	if err := h.notifications.Fetch(c.Request.Context()); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.notifications.Snapshot())
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"unreadCount": h.notifications.UnreadCount()})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	notificationID, ok := RequiredParam(c, "notificationId")
	if !ok {
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), notificationID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Notification marked as read",
		"unreadCount": h.notifications.UnreadCount(),
	})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.notifications.MarkAllAsRead(c.Request.Context()); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "All notifications marked as read",
		"unreadCount": h.notifications.UnreadCount(),
	})
}
