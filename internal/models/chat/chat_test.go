package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestChat() *Chat {
	return &Chat{
		ID: "chat-1",
		Participants: []Participant{
			{ID: "client-1", Name: "Anna", Role: "client"},
			{ID: "craft-1", Name: "Boris", Role: "craftsman"},
		},
	}
}

func TestChat_UnreadCounters(t *testing.T) {
	c := newTestChat()
	assert.Equal(t, 0, c.UnreadFor("client-1"))

	c.SetUnread("client-1", 2)
	assert.Equal(t, 2, c.UnreadFor("client-1"))
	assert.Equal(t, 0, c.UnreadFor("craft-1"))

	c.SetUnread("client-1", -3)
	assert.Equal(t, 0, c.UnreadFor("client-1"))
}

func TestChat_Counterpart(t *testing.T) {
	c := newTestChat()

	p, ok := c.Counterpart("client-1")
	assert.True(t, ok)
	assert.Equal(t, "craft-1", p.ID)

	assert.True(t, c.HasParticipant("craft-1"))
	assert.False(t, c.HasParticipant("stranger"))
}

func TestChat_ApplyMessage(t *testing.T) {
	c := newTestChat()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	c.ApplyMessage(&Message{Sender: Sender{ID: "craft-1"}, Type: MessageTypeImage, CreatedAt: ts})

	if assert.NotNil(t, c.LastMessage) {
		assert.Equal(t, "[image]", c.LastMessage.Content)
		assert.Equal(t, "craft-1", c.LastMessage.SenderID)
		assert.Equal(t, ts, c.LastMessage.Timestamp)
	}
}

func TestMessage_StatusNeverMovesBackwards(t *testing.T) {
	m := &Message{Status: MessageStatusSent}

	assert.True(t, m.Advance(MessageStatusDelivered))
	assert.False(t, m.Advance(MessageStatusSent))
	assert.Equal(t, MessageStatusDelivered, m.Status)

	m.MarkReadBy("client-1")
	m.MarkReadBy("client-1")
	assert.Equal(t, MessageStatusRead, m.Status)
	assert.Equal(t, []string{"client-1"}, m.ReadBy)
	assert.False(t, m.Advance(MessageStatusDelivered))
}
