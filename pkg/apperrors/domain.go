package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для доменных ошибок клиента.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error, domain string) *AppError {
	return Wrap(err, CodeNotFound, domain, "Resource not found", http.StatusNotFound)
}

// --- Session ---

// ErrNotReady - токен доступа еще не получен.
// Фоновая синхронизация в этом состоянии молча пропускается,
// а пользовательские мутации получают эту ошибку.
var ErrNotReady = New(
	CodeUnauthorized,
	"session",
	"Access credential is not available yet",
	http.StatusUnauthorized,
)

// ErrInvalidCredentials - неверный email или пароль.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

// ErrInvalidToken - удаленный API отклонил токен.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

// --- Notifications ---

// ErrNotificationNotFound - уведомление не найдено.
var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

// --- Chat ---

// ErrChatNotFound - чат не найден или пользователь не участник.
var ErrChatNotFound = New(
	CodeNotFound,
	"chat",
	"Chat not found",
	http.StatusNotFound,
)

// ErrNoChatSelected - операция требует открытого чата.
var ErrNoChatSelected = New(
	CodeInvalidOperation,
	"chat",
	"No chat is selected",
	http.StatusBadRequest,
)

// ErrInvalidMessageType - неверный тип сообщения.
var ErrInvalidMessageType = New(
	CodeValidationFailed,
	"validation",
	"Invalid message type",
	http.StatusBadRequest,
)

// --- Realtime ---

// ErrNotConnected - websocket-соединение не установлено.
var ErrNotConnected = New(
	CodeNotConnected,
	"realtime",
	"Realtime connection is not established",
	http.StatusServiceUnavailable,
)
