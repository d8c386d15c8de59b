package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"craftsmen_front/internal/client"
	"craftsmen_front/internal/models"
	"craftsmen_front/internal/session"
	"craftsmen_front/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotificationAPI - управляемая замена удаленного API.
// listFn получает номер вызова (с нуля).
type fakeNotificationAPI struct {
	mu         sync.Mutex
	listCalls  int
	listFn     func(call int, limit int) (*client.NotificationListResponse, error)
	markErr    error
	markAllErr error
	marked     []string
	markedAll  int
}

func (f *fakeNotificationAPI) ListNotifications(_ context.Context, _ string, page, limit int) (*client.NotificationListResponse, error) {
	f.mu.Lock()
	call := f.listCalls
	f.listCalls++
	fn := f.listFn
	f.mu.Unlock()

	if page != 1 {
		return nil, errors.New("only page 1 is expected")
	}
	return fn(call, limit)
}

func (f *fakeNotificationAPI) MarkNotificationRead(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeNotificationAPI) MarkAllNotificationsRead(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markAllErr != nil {
		return f.markAllErr
	}
	f.markedAll++
	return nil
}

func (f *fakeNotificationAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func returning(list ...models.Notification) func(int, int) (*client.NotificationListResponse, error) {
	return func(int, int) (*client.NotificationListResponse, error) {
		return &client.NotificationListResponse{Notifications: list, Total: int64(len(list))}, nil
	}
}

func unread(ids ...string) []models.Notification {
	out := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Notification{ID: id, Type: models.NotificationNewJob, Title: "job " + id})
	}
	return out
}

func newSync(api *fakeNotificationAPI, limit int) *NotificationSync {
	return NewNotificationSync(api, session.Static("tok"), NotificationSyncOptions{Enabled: true, Limit: limit})
}

func assertUnreadInvariant(t *testing.T, s *NotificationSync) {
	t.Helper()
	snap := s.Snapshot()
	assert.Equal(t, models.CountUnread(snap.Notifications), snap.UnreadCount)
	assert.Equal(t, snap.UnreadCount, s.UnreadCount())
}

func TestFetch_SkippedWhenNotReady(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A")...)}
	ctx := context.Background()

	noToken := NewNotificationSync(api, session.Static(""), NotificationSyncOptions{Enabled: true, Limit: 5})
	assert.NoError(t, noToken.Fetch(ctx))

	disabled := NewNotificationSync(api, session.Static("tok"), NotificationSyncOptions{Enabled: false, Limit: 5})
	assert.NoError(t, disabled.Fetch(ctx))

	assert.Equal(t, 0, api.calls())
	assert.Empty(t, noToken.Notifications())
	assert.Empty(t, noToken.Err())
}

func TestFetch_ReplacesListWithLocalUnreadCount(t *testing.T) {
	list := unread("A", "B", "C")
	list[1].Read = true
	api := &fakeNotificationAPI{listFn: func(_ int, limit int) (*client.NotificationListResponse, error) {
		assert.Equal(t, 5, limit)
		return &client.NotificationListResponse{Notifications: list, Total: 42}, nil
	}}
	s := newSync(api, 5)

	require.NoError(t, s.Fetch(context.Background()))

	assert.Len(t, s.Notifications(), 3)
	// только среди полученных 3, а не глобальные 42
	assert.Equal(t, 2, s.UnreadCount())
	assertUnreadInvariant(t, s)
}

func TestFetch_TruncatesToLimit(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A", "B", "C", "D")...)}
	s := newSync(api, 2)

	require.NoError(t, s.Fetch(context.Background()))
	assert.Len(t, s.Notifications(), 2)
}

func TestFetch_FailureKeepsListAndSuccessClearsError(t *testing.T) {
	fail := true
	api := &fakeNotificationAPI{}
	api.listFn = func(call int, _ int) (*client.NotificationListResponse, error) {
		if call == 0 {
			return &client.NotificationListResponse{Notifications: unread("A", "B")}, nil
		}
		if fail {
			return nil, apperrors.ExternalServiceError(errors.New("dial tcp"), "Remote API is unavailable", 0)
		}
		return &client.NotificationListResponse{Notifications: unread("C")}, nil
	}
	s := newSync(api, 10)
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx))
	before := s.Notifications()

	err := s.Fetch(ctx)
	require.Error(t, err)
	assert.Equal(t, before, s.Notifications())
	assert.Equal(t, "Remote API is unavailable", s.Err())
	assertUnreadInvariant(t, s)

	fail = false
	require.NoError(t, s.Fetch(ctx))
	assert.Empty(t, s.Err())
	assert.Len(t, s.Notifications(), 1)
}

func TestFetch_PlainErrorGetsGenericMessage(t *testing.T) {
	api := &fakeNotificationAPI{listFn: func(int, int) (*client.NotificationListResponse, error) {
		return nil, errors.New("socket hang up")
	}}
	s := newSync(api, 10)

	assert.Error(t, s.Fetch(context.Background()))
	assert.Equal(t, fetchErrorMessage, s.Err())
}

func TestMarkAsRead_FlipsOnlyThatNotification(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A", "B")...)}
	s := newSync(api, 10)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))
	assert.Equal(t, 2, s.UnreadCount())

	require.NoError(t, s.MarkAsRead(ctx, "A"))

	assert.Equal(t, 1, s.UnreadCount())
	list := s.Notifications()
	assert.True(t, list[0].Read)
	assert.False(t, list[1].Read)
	assert.Equal(t, []string{"A"}, api.marked)
	assertUnreadInvariant(t, s)

	// повтор не откатывает и не ломает счетчик
	require.NoError(t, s.MarkAsRead(ctx, "A"))
	assert.Equal(t, 1, s.UnreadCount())
}

func TestMarkAsRead_FailureLeavesStateAndReturnsError(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A", "B")...), markErr: apperrors.ErrNotificationNotFound}
	s := newSync(api, 10)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))
	version := s.Snapshot().Version

	err := s.MarkAsRead(ctx, "A")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotificationNotFound))
	assert.Equal(t, 2, s.UnreadCount())
	assert.Equal(t, version, s.Snapshot().Version)
}

func TestMarkAsRead_NotReady(t *testing.T) {
	s := NewNotificationSync(&fakeNotificationAPI{}, session.Static(""), NotificationSyncOptions{Enabled: true})
	assert.True(t, apperrors.Is(s.MarkAsRead(context.Background(), "A"), apperrors.ErrNotReady))
	assert.True(t, apperrors.Is(s.MarkAllAsRead(context.Background()), apperrors.ErrNotReady))
}

func TestMarkAllAsRead(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A", "B", "C")...)}
	s := newSync(api, 10)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	require.NoError(t, s.MarkAllAsRead(ctx))
	assert.Equal(t, 0, s.UnreadCount())
	for _, n := range s.Notifications() {
		assert.True(t, n.Read, n.ID)
	}

	api.markAllErr = errors.New("boom")
	s.HandleRealtime(models.Notification{ID: "D"})
	assert.Error(t, s.MarkAllAsRead(ctx))
	assert.Equal(t, 1, s.UnreadCount())
}

// Fetch, начатый до MarkAllAsRead и завершившийся после, перезаписывает
// список данными сервера и может вернуть непрочитанные.
func TestRace_FetchResolvingAfterMarkAllOverwrites(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeNotificationAPI{}
	api.listFn = func(call int, _ int) (*client.NotificationListResponse, error) {
		if call == 0 {
			return &client.NotificationListResponse{Notifications: unread("A", "B")}, nil
		}
		<-gate
		return &client.NotificationListResponse{Notifications: unread("A", "B", "C")}, nil
	}
	s := newSync(api, 10)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	done := make(chan error, 1)
	go func() { done <- s.Fetch(ctx) }()
	require.Eventually(t, s.Loading, time.Second, time.Millisecond)

	require.NoError(t, s.MarkAllAsRead(ctx))
	assert.Equal(t, 0, s.UnreadCount())

	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, 3, s.UnreadCount())
	assert.False(t, s.Loading())
	assertUnreadInvariant(t, s)
}

func TestRace_FetchResolvingAfterPushDropsPushed(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeNotificationAPI{}
	api.listFn = func(call int, _ int) (*client.NotificationListResponse, error) {
		if call == 0 {
			return &client.NotificationListResponse{Notifications: unread("A")}, nil
		}
		// ответ собран сервером до появления P
		<-gate
		return &client.NotificationListResponse{Notifications: unread("A", "B")}, nil
	}
	s := newSync(api, 10)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))

	done := make(chan error, 1)
	go func() { done <- s.Fetch(ctx) }()
	require.Eventually(t, s.Loading, time.Second, time.Millisecond)

	s.HandleRealtime(models.Notification{ID: "P", Type: models.NotificationNewMessage})
	require.Equal(t, "P", s.Notifications()[0].ID)
	assert.Equal(t, 2, s.UnreadCount())

	close(gate)
	require.NoError(t, <-done)

	// последний успешный fetch заменяет список целиком
	list := s.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, []string{"A", "B"}, []string{list[0].ID, list[1].ID})
	assertUnreadInvariant(t, s)

	// следующий push снова виден
	s.HandleRealtime(models.Notification{ID: "P"})
	assert.Equal(t, 3, s.UnreadCount())
}

func TestFetch_StaleResponseIsDropped(t *testing.T) {
	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	api := &fakeNotificationAPI{}
	api.listFn = func(call int, _ int) (*client.NotificationListResponse, error) {
		<-gates[call]
		if call == 0 {
			return &client.NotificationListResponse{Notifications: unread("old")}, nil
		}
		return &client.NotificationListResponse{Notifications: unread("new-1", "new-2")}, nil
	}
	s := newSync(api, 10)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- s.Fetch(ctx) }()
	require.Eventually(t, func() bool { return api.calls() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- s.Fetch(ctx) }()
	require.Eventually(t, func() bool { return api.calls() == 2 }, time.Second, time.Millisecond)

	close(gates[1])
	require.NoError(t, <-second)
	close(gates[0])
	require.NoError(t, <-first)

	list := s.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, "new-1", list[0].ID)
}

func TestHandleRealtime_PrependsDedupesAndCaps(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A", "B")...)}
	s := newSync(api, 3)
	ctx := context.Background()
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.MarkAsRead(ctx, "B"))

	s.HandleRealtime(models.Notification{ID: "C"})
	s.HandleRealtime(models.Notification{ID: "B", Title: "updated"})
	s.HandleRealtime(models.Notification{ID: "D"})

	list := s.Notifications()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"D", "B", "C"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.True(t, list[1].Read)
	assert.Equal(t, "updated", list[1].Title)
	assertUnreadInvariant(t, s)
}

func TestSubscribe_SignalsChanges(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A")...)}
	s := newSync(api, 10)

	updates, cancel := s.Subscribe()
	defer cancel()

	s.HandleRealtime(models.Notification{ID: "X"})

	select {
	case v := <-updates:
		assert.Equal(t, s.Snapshot().Version, v)
	case <-time.After(time.Second):
		t.Fatal("no update signal")
	}

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)
}

func TestRun_WaitsForCredential(t *testing.T) {
	api := &fakeNotificationAPI{listFn: returning(unread("A")...)}
	store := session.NewStore(nil, nil)
	s := NewNotificationSync(api, store, NotificationSyncOptions{Enabled: true, Limit: 5})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 10*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, api.calls())

	store.Set("tok", &models.User{ID: "u1"})
	require.Eventually(t, func() bool { return api.calls() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.UnreadCount())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
