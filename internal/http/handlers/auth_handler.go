package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gallery-backend/internal/service"
)

// AuthHandler выдаёт анонимные сессии.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт новый хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignInAnonymously обрабатывает POST /api/auth/anonymous.
func (h *AuthHandler) SignInAnonymously(c *gin.Context) {
	session, err := h.auth.SignInAnonymously(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось создать анонимную сессию"})
		return
	}

	c.JSON(http.StatusCreated, session)
}
