package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/models"
	"craftsmen_front/internal/models/chat"
	"craftsmen_front/internal/session"
	"craftsmen_front/pkg/apperrors"
)

// APIClient - клиент REST API маркетплейса.
// Каждый вызов - одна попытка, без повторов.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the marketplace backend
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ---------------- Responses ----------------

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"pageSize"`
}

type ChatListResponse struct {
	Chats []chat.Chat `json:"chats"`
}

type MessageListResponse struct {
	Messages []chat.Message `json:"messages"`
	Total    int64          `json:"total"`
}

type SendMessageRequest struct {
	Content string           `json:"content" validate:"required,max=5000"`
	Type    chat.MessageType `json:"type" validate:"required,is-message-type"`
}

// ---------------- Auth ----------------

// Login - POST /auth/login
func (c *APIClient) Login(ctx context.Context, creds session.Credentials) (*session.LoginResult, error) {
	var res session.LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", "", nil, creds, &res)
	if err != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) && appErr.HTTPCode == http.StatusUnauthorized {
			return nil, apperrors.ErrInvalidCredentials.WithError(err)
		}
		return nil, err
	}
	if res.Token == "" {
		return nil, apperrors.ExternalServiceError(errors.New("empty token"), "Login response has no token", 0)
	}
	return &res, nil
}

// ---------------- Notifications ----------------

// ListNotifications - GET /notifications?page=&limit=
func (c *APIClient) ListNotifications(ctx context.Context, token string, page, limit int) (*NotificationListResponse, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var res NotificationListResponse
	if err := c.do(ctx, http.MethodGet, "/notifications", token, query, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MarkNotificationRead - PUT /notifications/{id}/read
func (c *APIClient) MarkNotificationRead(ctx context.Context, token, notificationID string) error {
	path := "/notifications/" + url.PathEscape(notificationID) + "/read"
	err := c.do(ctx, http.MethodPut, path, token, nil, nil, nil)
	return mapNotFound(err, apperrors.ErrNotificationNotFound)
}

// MarkAllNotificationsRead - PUT /notifications/read-all
func (c *APIClient) MarkAllNotificationsRead(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", token, nil, nil, nil)
}

// ---------------- Chats ----------------

// ListChats - GET /chats
func (c *APIClient) ListChats(ctx context.Context, token string) ([]chat.Chat, error) {
	var res ChatListResponse
	if err := c.do(ctx, http.MethodGet, "/chats", token, nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Chats, nil
}

// GetChat - GET /chats/{id}
func (c *APIClient) GetChat(ctx context.Context, token, chatID string) (*chat.Chat, error) {
	var res chat.Chat
	err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), token, nil, nil, &res)
	if err != nil {
		return nil, mapNotFound(err, apperrors.ErrChatNotFound)
	}
	return &res, nil
}

// ListMessages - GET /chats/{id}/messages
func (c *APIClient) ListMessages(ctx context.Context, token, chatID string, page, limit int) ([]chat.Message, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var res MessageListResponse
	err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/messages", token, query, nil, &res)
	if err != nil {
		return nil, mapNotFound(err, apperrors.ErrChatNotFound)
	}
	return res.Messages, nil
}

// SendMessage - POST /chats/{id}/messages
func (c *APIClient) SendMessage(ctx context.Context, token, chatID string, req SendMessageRequest) (*chat.Message, error) {
	var res chat.Message
	err := c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(chatID)+"/messages", token, nil, req, &res)
	if err != nil {
		return nil, mapNotFound(err, apperrors.ErrChatNotFound)
	}
	return &res, nil
}

// MarkChatRead - PUT /chats/{id}/read
func (c *APIClient) MarkChatRead(ctx context.Context, token, chatID string) error {
	err := c.do(ctx, http.MethodPut, "/chats/"+url.PathEscape(chatID)+"/read", token, nil, nil, nil)
	return mapNotFound(err, apperrors.ErrChatNotFound)
}

// ---------------- transport ----------------

func (c *APIClient) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperrors.InternalError(fmt.Errorf("marshal request body: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return apperrors.InternalError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := apperrors.ExternalServiceError(err, "Remote API is unavailable", 0)
		logger.APILog(method, path, 0, time.Since(start).Milliseconds(), err)
		return wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errorFromResponse(resp)
		logger.APILog(method, path, resp.StatusCode, time.Since(start).Milliseconds(), apiErr)
		return apiErr
	}
	logger.APILog(method, path, resp.StatusCode, time.Since(start).Milliseconds(), nil)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.ExternalServiceError(err, "Failed to decode remote API response", resp.StatusCode)
	}
	return nil
}

// errorFromResponse переводит не-2xx ответ в AppError
func errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	message := upstreamMessage(raw)
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, message)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.ErrInvalidToken.WithError(cause)
	case http.StatusNotFound:
		return apperrors.ErrNotFound(cause, "api")
	default:
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return apperrors.ExternalServiceError(cause, message, resp.StatusCode)
	}
}

// upstreamMessage достает текст ошибки из {"message"} или {"error":{"message"}}
func upstreamMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if body.Message != "" {
		return body.Message
	}
	if len(body.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(body.Error, &plain) == nil {
			return plain
		}
	}
	return ""
}

func mapNotFound(err error, target *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) && appErr.Code == apperrors.CodeNotFound {
		return target.WithError(err)
	}
	return err
}
