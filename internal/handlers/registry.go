package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	HealthHandler       *HealthHandler
	NotificationHandler *NotificationHandler
	MessagesHandler     *MessagesHandler
}
