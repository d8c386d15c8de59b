package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	log *slog.Logger
	mu  sync.RWMutex
)

// Init инициализирует глобальный логгер
// env: "development", "test" или "production"
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

// InitWithWriter - то же, что Init, но с произвольным выводом (для тестов)
func InitWithWriter(env string, w io.Writer) {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: env != "test",
	}

	var handler slog.Handler
	switch env {
	case "development":
		// читаемый текстовый формат
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	case "test":
		opts.Level = slog.LevelWarn
		handler = slog.NewTextHandler(w, opts)
	default:
		// JSON для сборщика логов
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)

	mu.Lock()
	log = l
	mu.Unlock()

	slog.SetDefault(l)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()

	if l == nil {
		// Fallback если Init не вызван
		Init("development")
		return GetLogger()
	}
	return l
}

// ============================================
// Convenience функции
// ============================================

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// With создает новый логгер с дополнительными полями
// Пример: logger.With("chat_id", id).Info("joined chat")
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// WithError создает логгер с полем error
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}

// ============================================
// Специализированные логгеры
// ============================================

// APILog логирует вызов удаленного API
func APILog(method, path string, status int, durationMs int64, err error) {
	fields := []any{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", durationMs,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Warn("api call failed", fields...)
		return
	}
	GetLogger().Debug("api call", fields...)
}

// WorkerLog логирует фоновую операцию (poll loop, realtime reconnect)
func WorkerLog(worker, operation string, err error) {
	fields := []any{
		"worker", worker,
		"operation", operation,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("worker operation failed", fields...)
	} else {
		GetLogger().Debug("worker operation completed", fields...)
	}
}
