package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/gallery-backend/internal/logger"
	"github.com/ignatzorin/gallery-backend/internal/service"
	"github.com/ignatzorin/gallery-backend/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Происхождение проверяет CORS middleware, здесь пропускаем всех.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler подключает клиентов к событиям галереи.
type WSHandler struct {
	hub    *ws.Hub
	tokens *service.TokenManager
}

// NewWSHandler создаёт новый хэндлер.
func NewWSHandler(hub *ws.Hub, tokens *service.TokenManager) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens}
}

// Handle обрабатывает GET /api/ws?token=. Токен передаётся в query, потому
// что браузерный WebSocket не умеет выставлять заголовки.
func (h *WSHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	principalID, _, err := h.tokens.ParseAccess(token)
	if err != nil || principalID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithComponent("ws").Warnf("не удалось обновить соединение: %v", err)
		return
	}

	client := ws.NewClient(conn, h.hub, principalID)
	h.hub.Register(client)
	client.Run(c.Request.Context())
}
