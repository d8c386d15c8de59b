package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"craftsmen_front/internal/logger"
)

// Notification - событие, показанное пользователю.
// Read переходит только false -> true.
type Notification struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user"`
	Type      NotificationType    `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Data      NotificationPayload `json:"-"`
	Read      bool                `json:"read"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// MarkRead помечает уведомление прочитанным. Повторный вызов ничего не меняет.
func (n *Notification) MarkRead() {
	n.Read = true
}

// wire-представление уведомления: data хранится как сырой JSON
type notificationWire struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	w := notificationWire{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Data != nil {
		raw, err := json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification data: %w", err)
		}
		w.Data = raw
	}
	return json.Marshal(w)
}

func (n *Notification) UnmarshalJSON(b []byte) error {
	var w notificationWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	payload := DecodePayload(w.Type, w.Data)

	*n = Notification{
		ID:        w.ID,
		UserID:    w.UserID,
		Type:      w.Type,
		Title:     w.Title,
		Message:   w.Message,
		Data:      payload,
		Read:      w.Read,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	return nil
}

// ============================================
// Payload: дискриминированное объединение по Type
// ============================================

// NotificationPayload - данные уведомления конкретного типа
type NotificationPayload interface {
	PayloadType() NotificationType
}

type JobPayload struct {
	JobID    string `json:"jobId"`
	JobTitle string `json:"jobTitle,omitempty"`
}

type QuotePayload struct {
	JobID       string  `json:"jobId"`
	QuoteID     string  `json:"quoteId"`
	CraftsmanID string  `json:"craftsmanId,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
}

// QuoteStatusPayload - для quote_accepted и quote_rejected
type QuoteStatusPayload struct {
	Kind    NotificationType `json:"-"`
	JobID   string           `json:"jobId"`
	QuoteID string           `json:"quoteId"`
	Status  string           `json:"status,omitempty"`
}

type InvitationPayload struct {
	JobID        string `json:"jobId"`
	InvitationID string `json:"invitationId"`
	ClientID     string `json:"clientId,omitempty"`
}

type InvitationResponsePayload struct {
	JobID        string `json:"jobId"`
	InvitationID string `json:"invitationId"`
	CraftsmanID  string `json:"craftsmanId,omitempty"`
	Response     string `json:"response"` // accepted, declined
}

type MessagePayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId,omitempty"`
	SenderID  string `json:"senderId,omitempty"`
}

type ReviewPayload struct {
	JobID    string `json:"jobId"`
	ReviewID string `json:"reviewId"`
	Rating   int    `json:"rating,omitempty"`
}

type DisputePayload struct {
	DisputeID string `json:"disputeId"`
	JobID     string `json:"jobId,omitempty"`
	Status    string `json:"status"`
}

// RawPayload хранит data неизвестного типа как есть
type RawPayload struct {
	Kind NotificationType
	Raw  json.RawMessage
}

func (JobPayload) PayloadType() NotificationType                { return NotificationNewJob }
func (QuotePayload) PayloadType() NotificationType              { return NotificationNewQuote }
func (p QuoteStatusPayload) PayloadType() NotificationType      { return p.Kind }
func (InvitationPayload) PayloadType() NotificationType         { return NotificationJobInvitation }
func (InvitationResponsePayload) PayloadType() NotificationType { return NotificationInvitationResponse }
func (MessagePayload) PayloadType() NotificationType            { return NotificationNewMessage }
func (ReviewPayload) PayloadType() NotificationType             { return NotificationNewReview }
func (DisputePayload) PayloadType() NotificationType            { return NotificationDisputeUpdate }
func (p RawPayload) PayloadType() NotificationType              { return p.Kind }

func (p RawPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

// DecodePayload разбирает data по типу уведомления.
// Пустые и null данные дают nil payload.
// Если data известного типа не разбирается, она остается как RawPayload:
// одно кривое уведомление не должно ронять всю страницу.
func DecodePayload(t NotificationType, raw json.RawMessage) NotificationPayload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var (
		payload NotificationPayload
		err     error
	)

	switch t {
	case NotificationNewJob:
		var p JobPayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationNewQuote:
		var p QuotePayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationQuoteAccepted, NotificationQuoteRejected:
		p := QuoteStatusPayload{Kind: t}
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationJobInvitation:
		var p InvitationPayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationInvitationResponse:
		var p InvitationResponsePayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationNewMessage:
		var p MessagePayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationNewReview:
		var p ReviewPayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	case NotificationDisputeUpdate:
		var p DisputePayload
		err = json.Unmarshal(trimmed, &p)
		payload = p
	default:
		payload = RawPayload{Kind: t, Raw: append(json.RawMessage(nil), trimmed...)}
	}

	if err != nil {
		logger.Debug("notification data does not match its type, keeping raw",
			"type", string(t),
			"error", err.Error(),
		)
		return RawPayload{Kind: t, Raw: append(json.RawMessage(nil), trimmed...)}
	}
	return payload
}

// CountUnread - количество непрочитанных в списке
func CountUnread(list []Notification) int {
	count := 0
	for i := range list {
		if !list[i].Read {
			count++
		}
	}
	return count
}
