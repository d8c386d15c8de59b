package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tokenauth "craftsmen_front/internal/auth"
	"craftsmen_front/internal/client"
	"craftsmen_front/internal/config"
	"craftsmen_front/internal/handlers"
	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/middleware"
	"craftsmen_front/internal/routes"
	"craftsmen_front/internal/services"
	"craftsmen_front/internal/session"
	"craftsmen_front/internal/validator"
	"craftsmen_front/internal/workers"
	"craftsmen_front/pkg/apperrors"
	"craftsmen_front/ws"

	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout = 10 * time.Second
	typingTTL       = 6 * time.Second
)

// App - собранное приложение: сервисы, фоновые воркеры и HTTP сервер
type App struct {
	cfg      *config.Config
	services *services.ServiceContainer
	router   *gin.Engine
}

func Run() {
	if err := config.LoadConfig(); err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := New(cfg)
	if err := application.Start(ctx); err != nil {
		logger.Fatal("Application stopped with error", "error", err)
	}
	logger.Info("Application stopped")
}

// New собирает зависимости по конфигу. Сеть не трогает.
func New(cfg *config.Config) *App {
	apperrors.SetDebug(cfg.Server.Env != "production")
	if cfg.Server.Env == "production" || cfg.Server.Env == "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	v := validator.New()
	container := initializeServices(cfg, v)
	appHandlers := initializeHandlers(container, v)

	router := initializeGinRouter()
	routes.RegisterRoutes(router, appHandlers, container.Session)

	return &App{cfg: cfg, services: container, router: router}
}

// Router - gin engine приложения
func (a *App) Router() *gin.Engine {
	return a.router
}

// Services - контейнер сервисов
func (a *App) Services() *services.ServiceContainer {
	return a.services
}

// Start поднимает сессию, воркеры и HTTP сервер. Блокируется до отмены ctx.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	a.startWorkers(ctx, &wg)

	srv := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}

	wg.Wait()
	return runErr
}

// startWorkers: вход, опрос уведомлений, websocket и очистка typing
func (a *App) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.authenticate(ctx)
	}()

	if a.cfg.Notifications.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.services.Notifications.Run(ctx, a.cfg.PollInterval())
		}()
	}

	if a.services.Realtime != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.services.Realtime.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			workers.NewTypingWorker(a.services.Messaging, typingTTL).Run(ctx)
		}()
	}
}

// authenticate: статический токен из конфига или вход по email/паролю
func (a *App) authenticate(ctx context.Context) {
	creds := a.cfg.Auth
	switch {
	case creds.Token != "":
		claims, err := tokenauth.Inspect(creds.Token)
		if err != nil {
			// без ID пользователя непрочитанные в чатах не посчитать, но токен рабочий
			logger.WithError(err).Warn("Static token is not a readable JWT")
			a.services.Session.Set(creds.Token, nil)
			return
		}
		if claims.Expired(time.Now()) {
			logger.Warn("Static token is expired, API calls will fail", "user_id", claims.Subject())
		}
		a.services.Session.Set(creds.Token, claims.User())
		logger.Info("Session initialized from static token", "user_id", claims.Subject())
	case creds.Email != "":
		_, err := a.services.Session.Login(ctx, session.Credentials{Email: creds.Email, Password: creds.Password})
		logger.WorkerLog("session", "login", err)
	default:
		logger.Warn("No credentials configured, session stays empty")
	}
}

func initializeServices(cfg *config.Config, v *validator.Validator) *services.ServiceContainer {
	api := client.NewAPIClient(cfg.API.BaseURL, cfg.APITimeout())
	store := session.NewStore(api, v)

	notifications := services.NewNotificationSync(api, store, services.NotificationSyncOptions{
		Enabled: cfg.Notifications.Enabled,
		Limit:   cfg.Notifications.Limit,
	})

	container := &services.ServiceContainer{
		API:           api,
		Session:       store,
		Notifications: notifications,
	}

	// link остается nil-интерфейсом, если websocket выключен.
	// dispatch назначается до запуска клиента.
	var link services.RealtimeLink
	var dispatch ws.Handler
	var rt *ws.Client
	if cfg.Realtime.Enabled {
		rt = ws.NewClient(ws.ClientOptions{
			URL:        cfg.Realtime.URL,
			Tokens:     store,
			MaxBackoff: cfg.MaxBackoff(),
			Validator:  v,
		}, func(ev ws.ServerEvent) {
			dispatch(ev)
		})
		link = rt
		container.Realtime = rt
	}

	container.Messaging = services.NewMessagingPanel(api, link, store)
	dispatch = services.RealtimeDispatcher(notifications, container.Messaging)
	return container
}

func initializeHandlers(container *services.ServiceContainer, v *validator.Validator) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(v)

	var realtime handlers.RealtimeStatus
	if container.Realtime != nil {
		realtime = container.Realtime
	}

	return &handlers.AppHandlers{
		HealthHandler:       handlers.NewHealthHandler(container.Session, realtime),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, container.Notifications),
		MessagesHandler:     handlers.NewMessagesHandler(baseHandler, container.Messaging),
	}
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	return router
}
