package models

import (
	"time"

	"github.com/google/uuid"
)

// ImageAnalysis описывает результат анализа изображения AI моделью.
// Создаётся один раз при загрузке и больше не изменяется.
type ImageAnalysis struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// StoredImage описывает одну запись галереи: метаданные файла плюс
// опциональный результат AI анализа. Байты изображения в документе не
// хранятся — после сохранения остаётся только URL в объектном хранилище.
type StoredImage struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	OwnerID   uuid.UUID      `db:"owner_id" json:"owner_id"`
	Name      string         `db:"name" json:"name"`
	Type      string         `db:"type" json:"type"`
	Size      int64          `db:"size" json:"size"`
	CreatedAt int64          `db:"created_at" json:"createdAt"` // epoch миллисекунды
	URL       *string        `db:"url" json:"url,omitempty"`
	Analysis  *ImageAnalysis `db:"-" json:"analysis,omitempty"`
}

// NewStoredImage создаёт запись с новым идентификатором и текущим временем.
func NewStoredImage(ownerID uuid.UUID, name, mimeType string, size int64) *StoredImage {
	return &StoredImage{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Type:      mimeType,
		Size:      size,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// DisplaySourceKind определяет, откуда отдавать изображение.
type DisplaySourceKind int

const (
	// SourceRemote — у записи есть постоянный URL в объектном хранилище.
	SourceRemote DisplaySourceKind = iota
	// SourceLocal — байты лежат во временном локальном спуле
	// (запись ещё не сохранена или сохранение не завершилось).
	SourceLocal
)

// DisplaySource — источник отображения записи. Ровно один из вариантов
// авторитетен: либо удалённый URL, либо локальный путь спула.
type DisplaySource struct {
	Kind DisplaySourceKind
	URL  string // заполнен для SourceRemote
	Path string // заполнен для SourceLocal
}

// ResolveDisplaySource выбирает источник отображения: предпочитаем
// удалённый URL, иначе локальную копию. Пустой результат означает,
// что запись показать нечем.
func ResolveDisplaySource(img *StoredImage, localPath string) (DisplaySource, bool) {
	if img.URL != nil && *img.URL != "" {
		return DisplaySource{Kind: SourceRemote, URL: *img.URL}, true
	}
	if localPath != "" {
		return DisplaySource{Kind: SourceLocal, Path: localPath}, true
	}
	return DisplaySource{}, false
}
