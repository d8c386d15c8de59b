package services

import (
	"craftsmen_front/internal/logger"
	"craftsmen_front/ws"
)

// RealtimeDispatcher раздает входящие websocket-события:
// уведомления - в NotificationSync, остальное - в MessagingPanel.
func RealtimeDispatcher(notifications *NotificationSync, panel *MessagingPanel) ws.Handler {
	return func(ev ws.ServerEvent) {
		switch e := ev.(type) {
		case ws.NotificationPushed:
			if notifications != nil {
				notifications.HandleRealtime(e.Notification)
			}
		case ws.ServerError:
			logger.Warn("realtime server error", "message", e.Message, "code", e.Code)
			if panel != nil {
				panel.Apply(e)
			}
		default:
			if panel != nil {
				panel.Apply(ev)
			}
		}
	}
}
