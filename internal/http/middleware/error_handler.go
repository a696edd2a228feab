package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gallery-backend/internal/logger"
	"github.com/ignatzorin/gallery-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gallery-backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно: логирует, маскирует
// внутренние детали и возвращает короткое понятное сообщение. Ни одна
// ошибка не фатальна — клиент всегда может повторить запрос.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		var appErr *apperror.AppError
		switch {
		case errors.Is(err.Err, repository.ErrImageNotFound):
			statusCode = http.StatusNotFound
			message = "изображение не найдено"
		case errors.As(err.Err, &appErr):
			statusCode = appErr.HTTPStatus
			message = appErr.Message
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}
