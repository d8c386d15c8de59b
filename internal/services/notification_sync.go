package services

import (
	"context"
	"sync"
	"time"

	"craftsmen_front/internal/client"
	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/models"
	"craftsmen_front/internal/session"
	"craftsmen_front/pkg/apperrors"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100

	fetchErrorMessage = "Failed to fetch notifications"
)

// NotificationAPI - часть удаленного API, нужная синхронизации уведомлений
type NotificationAPI interface {
	ListNotifications(ctx context.Context, token string, page, limit int) (*client.NotificationListResponse, error)
	MarkNotificationRead(ctx context.Context, token, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, token string) error
}

// readyNotifier реализуют источники токена, умеющие сообщить о его появлении
type readyNotifier interface {
	Ready() <-chan struct{}
}

type NotificationSyncOptions struct {
	Enabled bool
	Limit   int
}

// NotificationSnapshot - согласованный срез состояния для UI
type NotificationSnapshot struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Error         string                `json:"error,omitempty"`
	Loading       bool                  `json:"loading"`
	Version       uint64                `json:"version"`
}

// NotificationSync держит в памяти последние уведомления пользователя.
//
// Список заменяется целиком каждым успешным fetch. Ответ fetch, начатого раньше
// уже примененного, отбрасывается. Локальные mark-read не сдвигают номер fetch,
// поэтому fetch, стартовавший до MarkAllAsRead и завершившийся после, перезапишет
// список данными сервера. То же с HandleRealtime: уведомление, пришедшее во время
// fetch, пропадет, если сервер не вернул его в этом ответе.
type NotificationSync struct {
	api     NotificationAPI
	tokens  session.TokenSource
	enabled bool
	limit   int

	mu         sync.RWMutex
	list       []models.Notification
	errMsg     string
	inflight   int
	issuedSeq  uint64
	appliedSeq uint64
	version    uint64
	subs       map[int]chan uint64
	nextSubID  int
}

func NewNotificationSync(api NotificationAPI, tokens session.TokenSource, opts NotificationSyncOptions) *NotificationSync {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return &NotificationSync{
		api:     api,
		tokens:  tokens,
		enabled: opts.Enabled,
		limit:   limit,
		subs:    make(map[int]chan uint64),
	}
}

// Limit - размер страницы
func (s *NotificationSync) Limit() int {
	return s.limit
}

// Fetch запрашивает первую страницу и заменяет ей локальный список.
// Без токена или при выключенной синхронизации ничего не делает и возвращает nil.
func (s *NotificationSync) Fetch(ctx context.Context) error {
	token, ok := s.tokens.Token()
	if !ok || !s.enabled {
		logger.CtxDebug(ctx, "notification fetch skipped", "ready", ok, "enabled", s.enabled)
		return nil
	}

	s.mu.Lock()
	s.issuedSeq++
	seq := s.issuedSeq
	s.inflight++
	s.version++
	s.mu.Unlock()
	s.notify()

	res, err := s.api.ListNotifications(ctx, token, 1, s.limit)

	s.mu.Lock()
	s.inflight--
	s.version++

	if seq < s.appliedSeq {
		s.mu.Unlock()
		s.notify()
		logger.CtxDebug(ctx, "stale notification response dropped", "seq", seq, "applied", s.appliedSeq)
		return nil
	}

	if err != nil {
		s.errMsg = fetchErrorText(err)
		s.mu.Unlock()
		s.notify()
		logger.CtxWarn(ctx, "notification fetch failed", "error", err.Error())
		return err
	}

	list := res.Notifications
	if len(list) > s.limit {
		list = list[:s.limit]
	}
	s.list = append(make([]models.Notification, 0, len(list)), list...)
	s.errMsg = ""
	s.appliedSeq = seq
	unread := models.CountUnread(s.list)
	s.mu.Unlock()
	s.notify()

	logger.CtxDebug(ctx, "notifications fetched", "count", len(list), "unread", unread)
	return nil
}

// MarkAsRead отмечает одно уведомление на сервере, затем локально.
// Ошибка возвращается вызывающему, состояние не меняется.
func (s *NotificationSync) MarkAsRead(ctx context.Context, notificationID string) error {
	token, ok := s.tokens.Token()
	if !ok {
		return apperrors.ErrNotReady
	}

	if err := s.api.MarkNotificationRead(ctx, token, notificationID); err != nil {
		logger.CtxWarn(ctx, "mark notification read failed", "notification_id", notificationID, "error", err.Error())
		return err
	}

	s.mu.Lock()
	changed := false
	for i := range s.list {
		if s.list[i].ID == notificationID && !s.list[i].Read {
			s.list[i].MarkRead()
			changed = true
		}
	}
	if changed {
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// MarkAllAsRead отмечает все уведомления на сервере, затем все локальные
func (s *NotificationSync) MarkAllAsRead(ctx context.Context) error {
	token, ok := s.tokens.Token()
	if !ok {
		return apperrors.ErrNotReady
	}

	if err := s.api.MarkAllNotificationsRead(ctx, token); err != nil {
		logger.CtxWarn(ctx, "mark all notifications read failed", "error", err.Error())
		return err
	}

	s.mu.Lock()
	for i := range s.list {
		s.list[i].MarkRead()
	}
	s.version++
	s.mu.Unlock()
	s.notify()
	return nil
}

// HandleRealtime добавляет уведомление, пришедшее по websocket, в начало списка.
// Повтор по ID заменяет старую запись, прочитанное остается прочитанным.
func (s *NotificationSync) HandleRealtime(n models.Notification) {
	if n.ID == "" {
		return
	}

	s.mu.Lock()
	next := make([]models.Notification, 0, len(s.list)+1)
	for _, existing := range s.list {
		if existing.ID == n.ID {
			if existing.Read {
				n.Read = true
			}
			continue
		}
		next = append(next, existing)
	}
	next = append([]models.Notification{n}, next...)
	if len(next) > s.limit {
		next = next[:s.limit]
	}
	s.list = next
	s.version++
	s.mu.Unlock()
	s.notify()
}

// Notifications возвращает копию списка
func (s *NotificationSync) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification(nil), s.list...)
}

// UnreadCount всегда считается по текущему списку
func (s *NotificationSync) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CountUnread(s.list)
}

// Err - текст последней ошибки fetch ("" если ее нет)
func (s *NotificationSync) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Loading - идет ли хотя бы один fetch
func (s *NotificationSync) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Snapshot читает все поля под одной блокировкой
func (s *NotificationSync) Snapshot() NotificationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := append(make([]models.Notification, 0, len(s.list)), s.list...)
	return NotificationSnapshot{
		Notifications: list,
		UnreadCount:   models.CountUnread(list),
		Error:         s.errMsg,
		Loading:       s.inflight > 0,
		Version:       s.version,
	}
}

// Subscribe возвращает канал версий: сигнал после каждого изменения.
// Медленный подписчик теряет промежуточные сигналы, но не блокирует запись.
func (s *NotificationSync) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *NotificationSync) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- s.version:
		default:
		}
	}
}

// Run делает первый fetch, как только появится токен, и дальше опрашивает с interval.
// interval <= 0 - только первый fetch. Ошибки логируются, повторов с backoff нет.
func (s *NotificationSync) Run(ctx context.Context, interval time.Duration) error {
	if rn, ok := s.tokens.(readyNotifier); ok {
		select {
		case <-rn.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logger.WorkerLog("notification_sync", "initial fetch", s.Fetch(ctx))

	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			logger.WorkerLog("notification_sync", "poll", s.Fetch(ctx))
		}
	}
}

func fetchErrorText(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return fetchErrorMessage
}
