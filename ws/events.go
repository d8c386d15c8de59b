package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"craftsmen_front/internal/models"
	"craftsmen_front/internal/models/chat"
)

// EventName - имя события в конверте {event, data}
type EventName string

// События, которые отправляет клиент
const (
	EventJoinChat    EventName = "join-chat"
	EventLeaveChat   EventName = "leave-chat"
	EventSendMessage EventName = "send-message"
	EventTypingStart EventName = "typing-start"
	EventTypingStop  EventName = "typing-stop"
	EventMarkRead    EventName = "mark-read"
)

// События, которые присылает сервер
const (
	EventNewMessage   EventName = "new-message"
	EventMessageRead  EventName = "message-read"
	EventUserTyping   EventName = "user-typing"
	EventUserOnline   EventName = "user-online"
	EventUserOffline  EventName = "user-offline"
	EventChatUpdated  EventName = "chat-updated"
	EventError        EventName = "error"
	EventNotification EventName = "notification"
)

// Envelope - формат кадра на проводе
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ============================================
// Клиентские payload'ы
// ============================================

// ClientEvent - исходящее событие
type ClientEvent interface {
	EventName() EventName
}

type JoinChat struct {
	ChatID string `json:"chatId" validate:"required"`
}

type LeaveChat struct {
	ChatID string `json:"chatId" validate:"required"`
}

type SendMessage struct {
	ChatID  string           `json:"chatId" validate:"required"`
	Content string           `json:"content" validate:"required,max=5000"`
	Type    chat.MessageType `json:"type" validate:"required,is-message-type"`
	TempID  string           `json:"tempId,omitempty"`
}

// Typing - для typing-start / typing-stop
type Typing struct {
	ChatID  string `json:"chatId" validate:"required"`
	Started bool   `json:"-"`
}

type MarkRead struct {
	ChatID     string   `json:"chatId" validate:"required"`
	MessageIDs []string `json:"messageIds,omitempty"`
}

func (JoinChat) EventName() EventName    { return EventJoinChat }
func (LeaveChat) EventName() EventName   { return EventLeaveChat }
func (SendMessage) EventName() EventName { return EventSendMessage }
func (MarkRead) EventName() EventName    { return EventMarkRead }

func (t Typing) EventName() EventName {
	if t.Started {
		return EventTypingStart
	}
	return EventTypingStop
}

// EncodeClientEvent упаковывает событие в конверт
func EncodeClientEvent(ev ClientEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.EventName(), err)
	}
	return json.Marshal(Envelope{Event: ev.EventName(), Data: data})
}

// ============================================
// Серверные payload'ы
// ============================================

// ServerEvent - входящее событие
type ServerEvent interface {
	EventName() EventName
}

type NewMessage struct {
	Message chat.Message `json:"message"`
	TempID  string       `json:"tempId,omitempty"`
}

type MessageRead struct {
	ChatID     string    `json:"chatId"`
	ReaderID   string    `json:"userId"`
	MessageIDs []string  `json:"messageIds"`
	ReadAt     time.Time `json:"readAt"`
}

type UserTyping struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// Presence - для user-online / user-offline
type Presence struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"-"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type ChatUpdated struct {
	Chat chat.Chat `json:"chat"`
}

type ServerError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type NotificationPushed struct {
	Notification models.Notification `json:"notification"`
}

func (NewMessage) EventName() EventName         { return EventNewMessage }
func (MessageRead) EventName() EventName        { return EventMessageRead }
func (UserTyping) EventName() EventName         { return EventUserTyping }
func (ChatUpdated) EventName() EventName        { return EventChatUpdated }
func (ServerError) EventName() EventName        { return EventError }
func (NotificationPushed) EventName() EventName { return EventNotification }

func (p Presence) EventName() EventName {
	if p.Online {
		return EventUserOnline
	}
	return EventUserOffline
}

func (e ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime error %s: %s", e.Code, e.Message)
	}
	return "realtime error: " + e.Message
}

// DecodeServerEvent разбирает входящий кадр.
// Неизвестные события возвращают ошибку, вызывающий решает, пропустить ли их.
func DecodeServerEvent(frame []byte) (ServerEvent, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}

	var (
		ev  ServerEvent
		err error
	)

	switch env.Event {
	case EventNewMessage:
		var p NewMessage
		err = decodeData(env.Data, &p)
		ev = p
	case EventMessageRead:
		var p MessageRead
		err = decodeData(env.Data, &p)
		ev = p
	case EventUserTyping:
		var p UserTyping
		err = decodeData(env.Data, &p)
		ev = p
	case EventUserOnline, EventUserOffline:
		p := Presence{Online: env.Event == EventUserOnline}
		err = decodeData(env.Data, &p)
		ev = p
	case EventChatUpdated:
		var p ChatUpdated
		err = decodeData(env.Data, &p)
		ev = p
	case EventError:
		var p ServerError
		err = decodeData(env.Data, &p)
		ev = p
	case EventNotification:
		var p NotificationPushed
		err = decodeData(env.Data, &p)
		ev = p
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", env.Event, err)
	}
	return ev, nil
}

func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
