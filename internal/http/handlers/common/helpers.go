package common

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/http/middleware"
)

// ErrPrincipalNotFound возвращается, когда принципал отсутствует в контексте.
var ErrPrincipalNotFound = errors.New("принципал не найден в контексте")

// CurrentPrincipalID извлекает идентификатор принципала из gin контекста.
func CurrentPrincipalID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextPrincipalIDKey)
	if !exists {
		return uuid.Nil, ErrPrincipalNotFound
	}

	principalID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrPrincipalNotFound
	}

	return principalID, nil
}
