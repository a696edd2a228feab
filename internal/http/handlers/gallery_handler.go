package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/gallery-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gallery-backend/internal/models"
	"github.com/ignatzorin/gallery-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gallery-backend/internal/repository"
	"github.com/ignatzorin/gallery-backend/internal/service"
)

// GalleryHandler обслуживает REST поверхность галереи.
type GalleryHandler struct {
	gallery *service.GalleryService
}

// NewGalleryHandler создаёт новый хэндлер.
func NewGalleryHandler(gallery *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// ListImages обрабатывает GET /api/images?q=. Список обновляется из
// хранилища, затем фильтруется запросом; при сбое чтения отдаём
// устаревший снапшот.
func (h *GalleryHandler) ListImages(c *gin.Context) {
	principalID, err := common.CurrentPrincipalID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	h.gallery.List(c.Request.Context(), principalID)
	images := h.gallery.Search(c.Query("q"))

	c.JSON(http.StatusOK, gin.H{
		"images": images,
		"count":  len(images),
		"total":  len(h.gallery.Snapshot()),
	})
}

// UploadImage обрабатывает POST /api/images: multipart поле file проходит
// весь пайплайн загрузки и в ответе возвращается сохранённая запись.
func (h *GalleryHandler) UploadImage(c *gin.Context) {
	principalID, err := common.CurrentPrincipalID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле file обязательно"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось открыть файл"})
		return
	}
	defer src.Close()

	// Читаем первые 512 байт для проверки магических байтов
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не удалось прочитать файл"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if kind, err := filetype.Match(buffer[:n]); err == nil && kind != filetype.Unknown {
		// Реальный тип файла важнее заявленного заголовка
		if contentType == "" || !strings.HasPrefix(contentType, "image/") {
			contentType = kind.MIME.Value
		}
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить позицию файла"})
			return
		}
	}

	img, err := h.gallery.Upload(c.Request.Context(), principalID, file.Filename, contentType, file.Size, src)
	if err != nil {
		if apperror.IsValidation(err) {
			var appErr *apperror.AppError
			errors.As(err, &appErr)
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось обработать или сохранить изображение"})
		return
	}

	c.JSON(http.StatusCreated, img)
}

// GetImage обрабатывает GET /api/images/:id.
func (h *GalleryHandler) GetImage(c *gin.Context) {
	principalID, err := common.CurrentPrincipalID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, _ := uuid.Parse(c.Param("id"))
	img, err := h.gallery.Get(c.Request.Context(), principalID, id)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "изображение не найдено"})
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, img)
}

// GetImageContent обрабатывает GET /api/images/:id/content: редирект на
// постоянный URL, либо отдача локальной копии, пока URL ещё нет.
func (h *GalleryHandler) GetImageContent(c *gin.Context) {
	principalID, err := common.CurrentPrincipalID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, _ := uuid.Parse(c.Param("id"))
	img, err := h.gallery.Get(c.Request.Context(), principalID, id)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "изображение не найдено"})
			return
		}
		c.Error(err)
		return
	}

	source, ok := h.gallery.ResolveDisplaySource(img)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "у записи нет данных для отображения"})
		return
	}

	switch source.Kind {
	case models.SourceRemote:
		c.Redirect(http.StatusFound, source.URL)
	case models.SourceLocal:
		body, err := h.gallery.OpenLocal(img.ID)
		if err != nil {
			c.Error(err)
			return
		}
		defer body.Close()
		c.DataFromReader(http.StatusOK, img.Size, img.Type, body, nil)
	}
}

// DeleteImage обрабатывает DELETE /api/images/:id.
func (h *GalleryHandler) DeleteImage(c *gin.Context) {
	principalID, err := common.CurrentPrincipalID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, _ := uuid.Parse(c.Param("id"))
	if err := h.gallery.Delete(c.Request.Context(), principalID, id); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "изображение не найдено"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось удалить изображение"})
		return
	}

	c.Status(http.StatusNoContent)
}
