package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/session"
	"craftsmen_front/internal/validator"
	"craftsmen_front/pkg/apperrors"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrSendBufferFull - исходящая очередь переполнена
var ErrSendBufferFull = errors.New("realtime send buffer is full")

// Handler получает каждое входящее событие. Вызывается из read pump.
type Handler func(ServerEvent)

type ClientOptions struct {
	URL        string
	Tokens     session.TokenSource
	MaxBackoff time.Duration
	SendBuffer int
	Dialer     *websocket.Dialer
	Validator  *validator.Validator
}

// Client - websocket-соединение с сервером чатов.
// Переподключается сам, комнаты после переподключения заходят заново.
type Client struct {
	opts    ClientOptions
	handler Handler

	mu        sync.RWMutex
	send      chan []byte
	connected bool
	rooms     map[string]struct{}
}

func NewClient(opts ClientOptions, handler Handler) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if handler == nil {
		handler = func(ServerEvent) {}
	}
	return &Client{
		opts:    opts,
		handler: handler,
		rooms:   make(map[string]struct{}),
	}
}

// Connected - есть ли живое соединение
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Rooms - чаты, в которые клиент вошел
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	return rooms
}

// Run держит соединение до отмены ctx. Если источник токена умеет Ready,
// первое подключение ждет появления токена.
// Между попытками - экспоненциальная пауза, ограниченная MaxBackoff.
func (c *Client) Run(ctx context.Context) error {
	if rn, ok := c.opts.Tokens.(interface{ Ready() <-chan struct{} }); ok {
		select {
		case <-rn.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	if c.opts.MaxBackoff < b.InitialInterval {
		b.InitialInterval = c.opts.MaxBackoff
	}
	b.MaxInterval = c.opts.MaxBackoff
	b.MaxElapsedTime = 0

	for {
		established, err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			b.Reset()
		}

		wait := b.NextBackOff()
		logger.WorkerLog("realtime", "connection lost", err)
		logger.Debug("realtime reconnect scheduled", "in", wait.String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// connectOnce устанавливает соединение и крутит pump'ы до разрыва.
func (c *Client) connectOnce(ctx context.Context) (bool, error) {
	token, ok := c.opts.Tokens.Token()
	if !ok {
		return false, apperrors.ErrNotReady
	}

	target, err := dialURL(c.opts.URL, token)
	if err != nil {
		return false, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := c.opts.Dialer.DialContext(ctx, target, header)
	if err != nil {
		return false, fmt.Errorf("dial realtime: %w", err)
	}

	send := make(chan []byte, c.opts.SendBuffer)

	c.mu.Lock()
	c.send = send
	c.connected = true
	for room := range c.rooms {
		if frame, err := EncodeClientEvent(JoinChat{ChatID: room}); err == nil {
			select {
			case send <- frame:
			default:
			}
		}
	}
	c.mu.Unlock()

	logger.Info("realtime connected", "url", c.opts.URL)

	done := make(chan struct{})
	go c.writePump(ctx, conn, send, done)

	readErr := c.readPump(conn)

	c.mu.Lock()
	c.connected = false
	c.send = nil
	c.mu.Unlock()

	close(done)
	conn.Close()

	return true, readErr
}

func (c *Client) readPump(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := DecodeServerEvent(frame)
		if err != nil {
			logger.Warn("skipping realtime frame", "error", err.Error())
			continue
		}

		c.handler(ev)
	}
}

func (c *Client) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Warn("realtime write failed", "error", err.Error())
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
			return
		case <-done:
			return
		}
	}
}

// Emit валидирует событие и ставит его в очередь на отправку
func (c *Client) Emit(ev ClientEvent) error {
	if err := c.opts.Validator.Validate(ev); err != nil {
		return err
	}

	frame, err := EncodeClientEvent(ev)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return apperrors.ErrNotConnected
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// JoinChat запоминает комнату и входит в нее, если соединение есть.
// Без соединения вход произойдет при подключении.
func (c *Client) JoinChat(chatID string) error {
	ev := JoinChat{ChatID: chatID}
	if err := c.opts.Validator.Validate(ev); err != nil {
		return err
	}

	c.mu.Lock()
	c.rooms[chatID] = struct{}{}
	c.mu.Unlock()

	if err := c.Emit(ev); err != nil && !errors.Is(err, apperrors.ErrNotConnected) {
		return err
	}
	return nil
}

// LeaveChat забывает комнату
func (c *Client) LeaveChat(chatID string) error {
	c.mu.Lock()
	delete(c.rooms, chatID)
	c.mu.Unlock()

	if err := c.Emit(LeaveChat{ChatID: chatID}); err != nil && !errors.Is(err, apperrors.ErrNotConnected) {
		return err
	}
	return nil
}

// dialURL добавляет токен в query: браузерные клиенты не умеют заголовки
func dialURL(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
