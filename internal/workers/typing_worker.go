package workers

import (
	"context"
	"time"

	"craftsmen_front/internal/logger"
)

// TypingExpirer - панель сообщений, умеющая снимать устаревшие индикаторы
type TypingExpirer interface {
	ExpireTyping(now time.Time, ttl time.Duration) int
}

// TypingWorker снимает индикаторы "печатает", если typing-stop так и не пришел
type TypingWorker struct {
	panel    TypingExpirer
	ttl      time.Duration
	interval time.Duration
}

func NewTypingWorker(panel TypingExpirer, ttl time.Duration) *TypingWorker {
	if ttl <= 0 {
		ttl = 6 * time.Second
	}
	return &TypingWorker{panel: panel, ttl: ttl, interval: ttl / 2}
}

// Run блокируется до отмены ctx
func (w *TypingWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Typing worker stopped")
			return
		case now := <-ticker.C:
			if n := w.panel.ExpireTyping(now, w.ttl); n > 0 {
				logger.Debug("Expired typing indicators", "count", n)
			}
		}
	}
}
