package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextPrincipalIDKey = "principalID"
	ContextRoleKey        = "role"
)

// AuthMiddleware проверяет JWT токен анонимной сессии. Это ворота доступа к
// хранилищам, а не аутентификация пользователей: роль всегда анонимная.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется анонимная сессия"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		principalID, role, err := tokens.ParseAccess(raw)
		if err != nil || principalID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextPrincipalIDKey, principalID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}
