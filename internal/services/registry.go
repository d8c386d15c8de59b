package services

import (
	"craftsmen_front/internal/client"
	"craftsmen_front/internal/session"
	"craftsmen_front/ws"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	API           *client.APIClient
	Session       *session.Store
	Notifications *NotificationSync
	Messaging     *MessagingPanel
	Realtime      *ws.Client // nil, если websocket выключен
}
