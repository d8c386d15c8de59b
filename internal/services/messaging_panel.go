package services

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"craftsmen_front/internal/client"
	"craftsmen_front/internal/logger"
	"craftsmen_front/internal/models/chat"
	"craftsmen_front/pkg/apperrors"
	"craftsmen_front/ws"

	"github.com/google/uuid"
)

const messagesPageSize = 50

// ChatAPI - часть удаленного API для чатов
type ChatAPI interface {
	ListChats(ctx context.Context, token string) ([]chat.Chat, error)
	ListMessages(ctx context.Context, token, chatID string, page, limit int) ([]chat.Message, error)
	SendMessage(ctx context.Context, token, chatID string, req client.SendMessageRequest) (*chat.Message, error)
	MarkChatRead(ctx context.Context, token, chatID string) error
}

// RealtimeLink - websocket-соединение (ws.Client)
type RealtimeLink interface {
	Connected() bool
	JoinChat(chatID string) error
	LeaveChat(chatID string) error
	Emit(ev ws.ClientEvent) error
}

// Identity - токен и пользователь текущей сессии
type Identity interface {
	Token() (string, bool)
	UserID() string
}

// PanelState - то, что рисует страница сообщений
type PanelState struct {
	SelectedChatID string         `json:"selectedChatId"`
	Chats          []chat.Chat    `json:"chats"`
	Messages       []chat.Message `json:"messages"`
	Typing         []string       `json:"typing,omitempty"`
	TotalUnread    int            `json:"totalUnread"`
	LastError      string         `json:"lastError,omitempty"`
}

// MessagingPanel - состояние страницы сообщений: список чатов,
// открытый чат и его сообщения. Обновляется событиями realtime.
type MessagingPanel struct {
	api      ChatAPI
	link     RealtimeLink
	identity Identity

	mu        sync.RWMutex
	chats     []chat.Chat
	selected  string
	messages  []chat.Message
	typing    map[string]time.Time
	lastError string
}

func NewMessagingPanel(api ChatAPI, link RealtimeLink, identity Identity) *MessagingPanel {
	return &MessagingPanel{
		api:      api,
		link:     link,
		identity: identity,
		typing:   make(map[string]time.Time),
	}
}

// SelectedChatID достает ID чата из query навигации: chatId, затем chat
func SelectedChatID(query url.Values) string {
	if id := query.Get("chatId"); id != "" {
		return id
	}
	return query.Get("chat")
}

// Mount загружает чаты и, если query указывает на чат пользователя, открывает его.
// Без chatId в query страница открывается без выбранного чата: прежний
// выбор сбрасывается, из его комнаты выходим. То же, если прежнего чата
// больше нет в списке.
func (p *MessagingPanel) Mount(ctx context.Context, query url.Values) (*PanelState, error) {
	token, ok := p.identity.Token()
	if !ok {
		return nil, apperrors.ErrNotReady
	}

	chats, err := p.api.ListChats(ctx, token)
	if err != nil {
		return nil, err
	}

	id := SelectedChatID(query)
	me := p.identity.UserID()

	p.mu.Lock()
	p.chats = append([]chat.Chat(nil), chats...)
	stale := ""
	// если id валиден, выход из старой комнаты сделает Select
	if p.selected != "" && (id == "" || !p.canOpen(p.selected, me) || !p.canOpen(id, me)) {
		stale = p.selected
		p.selected = ""
		p.messages = nil
		p.typing = make(map[string]time.Time)
	}
	p.mu.Unlock()

	if stale != "" && p.link != nil {
		if err := p.link.LeaveChat(stale); err != nil {
			logger.CtxWarn(ctx, "leave chat failed", "previous", stale, "error", err.Error())
		}
	}

	if id != "" {
		err := p.Select(ctx, id)
		switch {
		case err == nil:
		case apperrors.Is(err, apperrors.ErrChatNotFound):
			logger.CtxWarn(ctx, "requested chat is not available", "chat_id", id)
		default:
			return nil, err
		}
	}

	state := p.State()
	return &state, nil
}

// Select открывает чат: выходит из старой комнаты, входит в новую, грузит сообщения
func (p *MessagingPanel) Select(ctx context.Context, chatID string) error {
	token, ok := p.identity.Token()
	if !ok {
		return apperrors.ErrNotReady
	}

	me := p.identity.UserID()

	p.mu.RLock()
	known := p.canOpen(chatID, me)
	p.mu.RUnlock()
	if !known {
		return apperrors.ErrChatNotFound
	}

	messages, err := p.api.ListMessages(ctx, token, chatID, 1, messagesPageSize)
	if err != nil {
		return err
	}

	p.mu.Lock()
	prev := p.selected
	p.selected = chatID
	p.messages = append([]chat.Message(nil), messages...)
	p.typing = make(map[string]time.Time)
	p.mu.Unlock()

	ctx = logger.WithChatID(ctx, chatID)

	if p.link != nil {
		if prev != "" && prev != chatID {
			if err := p.link.LeaveChat(prev); err != nil {
				logger.CtxWarn(ctx, "leave chat failed", "previous", prev, "error", err.Error())
			}
		}
		if err := p.link.JoinChat(chatID); err != nil {
			logger.CtxWarn(ctx, "join chat failed", "error", err.Error())
		}
	}

	logger.CtxDebug(ctx, "chat selected", "messages", len(messages))
	return nil
}

// Send отправляет сообщение в открытый чат.
// Через websocket - с временным ID до эха сервера, иначе через REST.
func (p *MessagingPanel) Send(ctx context.Context, content string, msgType chat.MessageType) (*chat.Message, error) {
	if msgType == "" {
		msgType = chat.MessageTypeText
	}
	if !msgType.IsValid() {
		return nil, apperrors.ErrInvalidMessageType
	}

	token, ok := p.identity.Token()
	if !ok {
		return nil, apperrors.ErrNotReady
	}

	p.mu.RLock()
	chatID := p.selected
	p.mu.RUnlock()
	if chatID == "" {
		return nil, apperrors.ErrNoChatSelected
	}

	if p.link != nil && p.link.Connected() {
		tempID := uuid.NewString()
		ev := ws.SendMessage{ChatID: chatID, Content: content, Type: msgType, TempID: tempID}
		if err := p.link.Emit(ev); err == nil {
			pending := chat.Message{
				ID:        tempID,
				ChatID:    chatID,
				Sender:    chat.Sender{ID: p.identity.UserID()},
				Type:      msgType,
				Content:   content,
				CreatedAt: time.Now(),
			}
			p.mu.Lock()
			if p.selected == chatID {
				p.messages = append(p.messages, pending)
			}
			p.mu.Unlock()
			return &pending, nil
		} else if !apperrors.Is(err, apperrors.ErrNotConnected) {
			return nil, err
		}
	}

	msg, err := p.api.SendMessage(ctx, token, chatID, client.SendMessageRequest{Content: content, Type: msgType})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.applyMessage(*msg, "")
	p.mu.Unlock()
	return msg, nil
}

// MarkRead отмечает открытый чат прочитанным
func (p *MessagingPanel) MarkRead(ctx context.Context) error {
	token, ok := p.identity.Token()
	if !ok {
		return apperrors.ErrNotReady
	}

	p.mu.RLock()
	chatID := p.selected
	p.mu.RUnlock()
	if chatID == "" {
		return apperrors.ErrNoChatSelected
	}

	sent := false
	if p.link != nil && p.link.Connected() {
		if err := p.link.Emit(ws.MarkRead{ChatID: chatID}); err == nil {
			sent = true
		}
	}
	if !sent {
		if err := p.api.MarkChatRead(ctx, token, chatID); err != nil {
			return err
		}
	}

	userID := p.identity.UserID()

	p.mu.Lock()
	defer p.mu.Unlock()
	if i := p.indexOf(chatID); i >= 0 {
		p.chats[i].SetUnread(userID, 0)
	}
	if p.selected == chatID {
		for i := range p.messages {
			if p.messages[i].Sender.ID != userID {
				p.messages[i].MarkReadBy(userID)
			}
		}
	}
	return nil
}

// Typing сообщает собеседнику, что пользователь печатает
func (p *MessagingPanel) Typing(started bool) error {
	p.mu.RLock()
	chatID := p.selected
	p.mu.RUnlock()
	if chatID == "" {
		return apperrors.ErrNoChatSelected
	}
	if p.link == nil {
		return apperrors.ErrNotConnected
	}
	return p.link.Emit(ws.Typing{ChatID: chatID, Started: started})
}

// Apply применяет серверное событие к состоянию панели
func (p *MessagingPanel) Apply(ev ws.ServerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case ws.NewMessage:
		p.applyMessage(e.Message, e.TempID)

	case ws.MessageRead:
		// пустой messageIds - прочитано все
		if e.ChatID == p.selected {
			ids := make(map[string]struct{}, len(e.MessageIDs))
			for _, id := range e.MessageIDs {
				ids[id] = struct{}{}
			}
			for i := range p.messages {
				if _, ok := ids[p.messages[i].ID]; ok || len(ids) == 0 {
					p.messages[i].MarkReadBy(e.ReaderID)
				}
			}
		}
		if e.ReaderID == p.identity.UserID() {
			if i := p.indexOf(e.ChatID); i >= 0 {
				p.chats[i].SetUnread(e.ReaderID, 0)
			}
		}

	case ws.UserTyping:
		if e.ChatID != p.selected || e.UserID == p.identity.UserID() {
			return
		}
		if e.IsTyping {
			p.typing[e.UserID] = time.Now()
		} else {
			delete(p.typing, e.UserID)
		}

	case ws.Presence:
		for i := range p.chats {
			if part, ok := p.chats[i].Participant(e.UserID); ok {
				part.IsOnline = e.Online
				if e.LastSeen != nil {
					seen := *e.LastSeen
					part.LastSeen = &seen
				}
			}
		}

	case ws.ChatUpdated:
		if i := p.indexOf(e.Chat.ID); i >= 0 {
			p.chats[i] = e.Chat
		} else {
			p.chats = append([]chat.Chat{e.Chat}, p.chats...)
		}

	case ws.ServerError:
		p.lastError = e.Message
	}
}

// applyMessage вызывается под p.mu
func (p *MessagingPanel) applyMessage(msg chat.Message, tempID string) {
	// без chatId сообщение некуда положить (и оно совпало бы с selected == "")
	if msg.ChatID == "" {
		logger.Debug("message without chat id ignored", "message_id", msg.ID)
		return
	}
	me := p.identity.UserID()

	if i := p.indexOf(msg.ChatID); i >= 0 {
		p.chats[i].ApplyMessage(&msg)
		if msg.ChatID != p.selected && msg.Sender.ID != me {
			p.chats[i].SetUnread(me, p.chats[i].UnreadFor(me)+1)
		}
	}

	if msg.ChatID != p.selected {
		return
	}

	for i := range p.messages {
		if p.messages[i].ID == msg.ID || (tempID != "" && p.messages[i].ID == tempID) {
			p.messages[i] = msg
			return
		}
	}
	p.messages = append(p.messages, msg)
	delete(p.typing, msg.Sender.ID)
}

// ExpireTyping убирает индикаторы "печатает", не обновлявшиеся дольше ttl.
// Возвращает число снятых индикаторов.
func (p *MessagingPanel) ExpireTyping(now time.Time, ttl time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	expired := 0
	for userID, at := range p.typing {
		if now.Sub(at) > ttl {
			delete(p.typing, userID)
			expired++
		}
	}
	return expired
}

// canOpen: чат есть в списке и пользователь в нем участвует.
// Без ID пользователя членство не проверить. Вызывается под p.mu.
func (p *MessagingPanel) canOpen(chatID, me string) bool {
	i := p.indexOf(chatID)
	return i >= 0 && (me == "" || p.chats[i].HasParticipant(me))
}

func (p *MessagingPanel) indexOf(chatID string) int {
	for i := range p.chats {
		if p.chats[i].ID == chatID {
			return i
		}
	}
	return -1
}

// TotalUnread - сумма непрочитанных пользователя по всем чатам
func (p *MessagingPanel) TotalUnread(userID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalUnread(userID)
}

func (p *MessagingPanel) totalUnread(userID string) int {
	total := 0
	for i := range p.chats {
		total += p.chats[i].UnreadFor(userID)
	}
	return total
}

// State возвращает копию состояния
func (p *MessagingPanel) State() PanelState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	chats := make([]chat.Chat, len(p.chats))
	for i, c := range p.chats {
		chats[i] = c
		if c.UnreadCount != nil {
			chats[i].UnreadCount = make(map[string]int, len(c.UnreadCount))
			for k, v := range c.UnreadCount {
				chats[i].UnreadCount[k] = v
			}
		}
		chats[i].Participants = append([]chat.Participant(nil), c.Participants...)
	}

	typing := make([]string, 0, len(p.typing))
	for id := range p.typing {
		typing = append(typing, id)
	}
	sort.Strings(typing)

	return PanelState{
		SelectedChatID: p.selected,
		Chats:          chats,
		Messages:       append([]chat.Message(nil), p.messages...),
		Typing:         typing,
		TotalUnread:    p.totalUnread(p.identity.UserID()),
		LastError:      p.lastError,
	}
}
