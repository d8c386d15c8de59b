package routes

import (
	"craftsmen_front/internal/handlers"
	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP маршруты локального сервера.
// /health доступен всегда, /api - только при готовой сессии.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	sess middleware.SessionSource,
) {
	appHandlers.HealthHandler.RegisterRoutes(ginRouter)

	api := ginRouter.Group("/api")
	api.Use(middleware.SessionMiddleware(sess))
	{
		appHandlers.NotificationHandler.RegisterRoutes(api)
		appHandlers.MessagesHandler.RegisterRoutes(api)
	}

	logger.Debug("HTTP routes registered", "count", len(ginRouter.Routes()))
}
