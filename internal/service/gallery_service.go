package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/logger"
	"github.com/ignatzorin/gallery-backend/internal/models"
	"github.com/ignatzorin/gallery-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gallery-backend/internal/storage"
	"github.com/ignatzorin/gallery-backend/internal/validation"
)

// Persistence описывает шлюз хранения, чтобы тесты могли подставить
// in-memory реализацию вместо Postgres и S3.
type Persistence interface {
	Save(ctx context.Context, img *models.StoredImage, body io.Reader) error
	FetchAll(ctx context.Context, owner uuid.UUID) ([]models.StoredImage, error)
	Fetch(ctx context.Context, owner, id uuid.UUID) (*models.StoredImage, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
}

// Analyzer описывает шлюз анализа. Реализация обязана вернуть результат
// для любого входа: сбой анализа заменяется fallback внутри шлюза.
type Analyzer interface {
	AnalyzeImageWithFallback(ctx context.Context, data []byte, mimeType string) *models.ImageAnalysis
}

// Hub рассылает события галереи подключённым клиентам.
type Hub interface {
	Broadcast(event string, data any) error
}

// События галереи.
const (
	EventImageCreated = "image.created"
	EventImageDeleted = "image.deleted"
)

// GalleryService владеет in-memory списком записей и оркестрирует пайплайн
// загрузки: валидация → анализ → сохранение → обновление списка.
type GalleryService struct {
	mu     sync.RWMutex
	images []models.StoredImage

	persistence Persistence
	analyzer    Analyzer
	spool       *storage.Spool
	hub         Hub
}

// NewGalleryService создаёт сервис галереи.
func NewGalleryService(persistence Persistence, analyzer Analyzer, spool *storage.Spool) *GalleryService {
	return &GalleryService{
		persistence: persistence,
		analyzer:    analyzer,
		spool:       spool,
	}
}

// SetHub подключает рассылку событий галереи.
func (s *GalleryService) SetHub(hub Hub) {
	s.hub = hub
}

// List обновляет снапшот из хранилища и возвращает его. При сбое чтения
// снапшот не трогается — отдаём устаревший, но доступный список.
func (s *GalleryService) List(ctx context.Context, owner uuid.UUID) []models.StoredImage {
	images, err := s.persistence.FetchAll(ctx, owner)
	if err != nil {
		logger.WithComponent("gallery").Errorf("не удалось загрузить список записей: %v", err)
		return s.Snapshot()
	}

	s.mu.Lock()
	s.images = images
	s.mu.Unlock()

	return s.Snapshot()
}

// Snapshot возвращает копию текущего списка без похода в хранилище.
func (s *GalleryService) Snapshot() []models.StoredImage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StoredImage, len(s.images))
	copy(out, s.images)
	return out
}

// Search — чистый фильтр по снапшоту: регистронезависимое вхождение запроса
// в заголовок, описание, теги или имя файла. Пустой запрос возвращает всё
// в исходном порядке.
func (s *GalleryService) Search(query string) []models.StoredImage {
	snapshot := s.Snapshot()
	if query == "" {
		return snapshot
	}

	q := strings.ToLower(query)
	out := make([]models.StoredImage, 0, len(snapshot))
	for _, img := range snapshot {
		if matchesQuery(&img, q) {
			out = append(out, img)
		}
	}
	return out
}

// matchesQuery проверяет вхождение запроса в поля записи.
func matchesQuery(img *models.StoredImage, q string) bool {
	if strings.Contains(strings.ToLower(img.Name), q) {
		return true
	}
	if img.Analysis == nil {
		return false
	}
	if strings.Contains(strings.ToLower(img.Analysis.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(img.Analysis.Description), q) {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(img.Analysis.Tags, " ")), q)
}

// Upload выполняет пайплайн загрузки. Анализ выполняется синхронно и
// блокирует только эту загрузку: параллельные загрузки никак не
// сериализуются. Частичные сбои сохранения не компенсируются.
func (s *GalleryService) Upload(ctx context.Context, owner uuid.UUID, filename, mimeType string, size int64, r io.Reader) (*models.StoredImage, error) {
	if err := validation.ValidateUpload(filename, mimeType, size); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	img := models.NewStoredImage(owner, filename, mimeType, size)

	// Локальная ссылка на байты живёт только внутри пайплайна и
	// освобождается на выходе в любом случае.
	if _, written, err := s.spool.Save(ctx, img.ID, r); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось принять файл")
	} else {
		img.Size = written
	}
	defer func() {
		if err := s.spool.Release(img.ID); err != nil {
			logger.WithComponent("gallery").Warnf("локальная ссылка %s не освобождена: %v", img.ID, err)
		}
	}()

	data, err := s.readSpooled(img.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось прочитать файл")
	}

	// Единственный блокирующий шаг пайплайна: ждём модель без таймаута
	// сверх транспортного. Сбой анализа уже заменён fallback внутри шлюза.
	img.Analysis = s.analyzer.AnalyzeImageWithFallback(ctx, data, mimeType)

	body, err := s.spool.Open(img.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось прочитать файл")
	}
	defer body.Close()

	if err := s.persistence.Save(ctx, img, body); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить изображение")
	}

	s.List(ctx, owner)
	s.broadcast(EventImageCreated, img)

	return img, nil
}

// Get возвращает запись по идентификатору.
func (s *GalleryService) Get(ctx context.Context, owner, id uuid.UUID) (*models.StoredImage, error) {
	return s.persistence.Fetch(ctx, owner, id)
}

// ResolveDisplaySource выбирает источник отображения записи: постоянный URL
// или локальную копию из спула.
func (s *GalleryService) ResolveDisplaySource(img *models.StoredImage) (models.DisplaySource, bool) {
	localPath, _ := s.spool.Lookup(img.ID)
	return models.ResolveDisplaySource(img, localPath)
}

// OpenLocal открывает локальную копию записи из спула.
func (s *GalleryService) OpenLocal(id uuid.UUID) (io.ReadCloser, error) {
	return s.spool.Open(id)
}

// Delete удаляет запись: сначала документ, затем по возможности объект и
// локальную ссылку, после чего обновляет снапшот.
func (s *GalleryService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.persistence.Delete(ctx, owner, id); err != nil {
		return err
	}

	if err := s.spool.Release(id); err != nil {
		logger.WithComponent("gallery").Warnf("локальная ссылка %s не освобождена: %v", id, err)
	}

	s.List(ctx, owner)
	s.broadcast(EventImageDeleted, map[string]string{"id": id.String()})

	return nil
}

// readSpooled читает байты записи из спула целиком. Лимит в 10 МБ делает
// чтение в память безопасным.
func (s *GalleryService) readSpooled(id uuid.UUID) ([]byte, error) {
	f, err := s.spool.Open(id)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("gallery: чтение из спула: %w", err)
	}
	return data, nil
}

// broadcast отправляет событие, если hub подключён.
func (s *GalleryService) broadcast(event string, data any) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(event, data); err != nil {
		logger.WithComponent("gallery").Warnf("событие %s не отправлено: %v", event, err)
	}
}
