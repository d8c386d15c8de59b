package handlers

import (
	"net/http"

	"craftsmen_front/internal/session"

	"github.com/gin-gonic/gin"
)

// RealtimeStatus - состояние websocket-соединения
type RealtimeStatus interface {
	Connected() bool
}

type HealthHandler struct {
	session  session.TokenSource
	realtime RealtimeStatus
}

// NewHealthHandler: realtime может быть nil, если websocket выключен
func NewHealthHandler(session session.TokenSource, realtime RealtimeStatus) *HealthHandler {
	return &HealthHandler{session: session, realtime: realtime}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c *gin.Context) {
	_, ready := h.session.Token()
	resp := gin.H{
		"status":  "ok",
		"session": ready,
	}
	if h.realtime != nil {
		resp["realtime"] = h.realtime.Connected()
	}
	c.JSON(http.StatusOK, resp)
}
