package chat

import (
	"time"

	"craftsmen_front/internal/models"
)

// Participant - участник переписки
type Participant struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Avatar   *string         `json:"avatar,omitempty"`
	Role     models.UserRole `json:"role"`
	IsOnline bool            `json:"isOnline"`
	LastSeen *time.Time      `json:"lastSeen,omitempty"`
}

// JobRef - заказ, к которому привязан чат
type JobRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// LastMessage - денормализованная сводка последнего сообщения
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"sender"`
}

// Chat - переписка между клиентом и мастером
type Chat struct {
	ID           string         `json:"id"`
	Participants []Participant  `json:"participants"`
	Job          *JobRef        `json:"job,omitempty"`
	LastMessage  *LastMessage   `json:"lastMessage,omitempty"`
	UnreadCount  map[string]int `json:"unreadCount"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// UnreadFor - непрочитанные сообщения пользователя в этом чате
func (c *Chat) UnreadFor(userID string) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}

// SetUnread заменяет счетчик пользователя
func (c *Chat) SetUnread(userID string, count int) {
	if count < 0 {
		count = 0
	}
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	c.UnreadCount[userID] = count
}

// Participant ищет участника по ID
func (c *Chat) Participant(userID string) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].ID == userID {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

// HasParticipant - входит ли пользователь в чат
func (c *Chat) HasParticipant(userID string) bool {
	_, ok := c.Participant(userID)
	return ok
}

// Counterpart - собеседник пользователя (первый участник, который не он)
func (c *Chat) Counterpart(userID string) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].ID != userID {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

// ApplyMessage обновляет сводку чата новым сообщением
func (c *Chat) ApplyMessage(m *Message) {
	ts := m.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	c.LastMessage = &LastMessage{
		Content:   m.Preview(),
		Timestamp: ts,
		SenderID:  m.Sender.ID,
	}
	c.UpdatedAt = ts
}
