package handlers

import (
	"context"
	"net/http"
	"net/url"

	"craftsmen_front/internal/models/chat"
	"craftsmen_front/internal/services"

	"github.com/gin-gonic/gin"
)

// MessagingService - то, что хендлер берет у services.MessagingPanel
type MessagingService interface {
	Mount(ctx context.Context, query url.Values) (*services.PanelState, error)
	State() services.PanelState
	Send(ctx context.Context, content string, msgType chat.MessageType) (*chat.Message, error)
	MarkRead(ctx context.Context) error
	Typing(started bool) error
}

type SendMessageRequest struct {
	Content string           `json:"content" validate:"required,max=5000"`
	Type    chat.MessageType `json:"type" validate:"omitempty,is-message-type"`
}

type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

type MessagesHandler struct {
	*BaseHandler
	panel MessagingService
}

func NewMessagesHandler(base *BaseHandler, panel MessagingService) *MessagesHandler {
	return &MessagesHandler{
		BaseHandler: base,
		panel:       panel,
	}
}

func (h *MessagesHandler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.GET("", h.Mount)
		messages.GET("/state", h.GetState)
		messages.POST("", h.SendMessage)
		messages.PUT("/read", h.MarkRead)
		messages.POST("/typing", h.Typing)
	}
}

// Mount - открытие страницы сообщений, ?chatId= выбирает чат
func (h *MessagesHandler) Mount(c *gin.Context) {
	state, err := h.panel.Mount(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetState - текущее состояние без запроса к серверу
func (h *MessagesHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.panel.State())
}

func (h *MessagesHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	msg, err := h.panel.Send(c.Request.Context(), req.Content, req.Type)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessagesHandler) MarkRead(c *gin.Context) {
	if err := h.panel.MarkRead(c.Request.Context()); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat marked as read"})
}

func (h *MessagesHandler) Typing(c *gin.Context) {
	var req TypingRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.panel.Typing(req.IsTyping); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
