package chat

import (
	"time"

	"craftsmen_front/internal/models"
)

type MessageType string
type MessageStatus string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"

	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// IsValid проверяет тип сообщения
func (t MessageType) IsValid() bool {
	return t == MessageTypeText || t == MessageTypeImage
}

func (s MessageStatus) rank() int {
	switch s {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return 0
}

// Sender - автор сообщения
type Sender struct {
	ID   string          `json:"id"`
	Role models.UserRole `json:"role"`
}

// Message - сообщение в чате
type Message struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat"`
	Sender    Sender        `json:"sender"`
	Type      MessageType   `json:"type"`
	Content   string        `json:"content"`
	ReadBy    []string      `json:"readBy"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	DeletedAt *time.Time    `json:"deletedAt,omitempty"`
}

// Advance переводит статус вперед: sent -> delivered -> read.
// Откат назад игнорируется.
func (m *Message) Advance(status MessageStatus) bool {
	if status.rank() <= m.Status.rank() {
		return false
	}
	m.Status = status
	return true
}

// IsReadBy - прочитал ли пользователь сообщение
func (m *Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// MarkReadBy добавляет читателя один раз и продвигает статус до read
func (m *Message) MarkReadBy(userID string) {
	if !m.IsReadBy(userID) {
		m.ReadBy = append(m.ReadBy, userID)
	}
	m.Advance(MessageStatusRead)
}

// IsDeleted - мягкое удаление
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Preview - текст для сводки чата
func (m *Message) Preview() string {
	if m.IsDeleted() {
		return ""
	}
	if m.Type == MessageTypeImage {
		return "[image]"
	}
	return m.Content
}
