package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gallery-backend/internal/models"
	"github.com/ignatzorin/gallery-backend/internal/pkg/apperror"
)

// ErrImageNotFound сигнализирует об отсутствии записи.
var ErrImageNotFound = errors.New("image not found")

// ImageRepository работает с таблицей images — документной частью записи
// галереи. Байты изображения сюда никогда не попадают.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository создаёт экземпляр.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// imageRow — как запись лежит в базе: analysis хранится как jsonb и
// декодируется явно, а не доверяется форме из хранилища.
type imageRow struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   uuid.UUID `db:"owner_id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	Size      int64     `db:"size"`
	CreatedAt int64     `db:"created_at"`
	URL       string    `db:"url"`
	Analysis  []byte    `db:"analysis"`
}

// Create сохраняет документ записи.
func (r *ImageRepository) Create(ctx context.Context, img *models.StoredImage) error {
	if img.URL == nil || *img.URL == "" {
		return fmt.Errorf("image repository: create: запись без url не сохраняется")
	}

	var analysisJSON []byte
	if img.Analysis != nil {
		raw, err := json.Marshal(img.Analysis)
		if err != nil {
			return fmt.Errorf("image repository: create: %w", err)
		}
		analysisJSON = raw
	}

	query := `
		INSERT INTO images (id, owner_id, name, type, size, created_at, url, analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		img.ID,
		img.OwnerID,
		img.Name,
		img.Type,
		img.Size,
		img.CreatedAt,
		*img.URL,
		analysisJSON,
	); err != nil {
		return fmt.Errorf("image repository: create %w", err)
	}

	return nil
}

// ListAll возвращает все записи, новые первыми. Порядок задаёт база,
// на клиенте он не пересортировывается.
func (r *ImageRepository) ListAll(ctx context.Context) ([]models.StoredImage, error) {
	var rows []imageRow
	query := `SELECT id, owner_id, name, type, size, created_at, url, analysis FROM images ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("image repository: list %w", err)
	}

	images := make([]models.StoredImage, 0, len(rows))
	for i := range rows {
		img, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}

	return images, nil
}

// GetByID возвращает запись по идентификатору.
func (r *ImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredImage, error) {
	var row imageRow
	query := `SELECT id, owner_id, name, type, size, created_at, url, analysis FROM images WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("image repository: get by id %w", err)
	}
	return row.toModel()
}

// Delete удаляет документ записи.
func (r *ImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("image repository: delete %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// toModel переводит строку базы в модель с явной проверкой формы analysis.
func (row *imageRow) toModel() (*models.StoredImage, error) {
	url := row.URL
	img := &models.StoredImage{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		Type:      row.Type,
		Size:      row.Size,
		CreatedAt: row.CreatedAt,
		URL:       &url,
	}

	if len(row.Analysis) > 0 {
		analysis, err := decodeAnalysis(row.Analysis)
		if err != nil {
			return nil, err
		}
		img.Analysis = analysis
	}

	return img, nil
}

// decodeAnalysis валидирует jsonb из базы. Несовпадение формы — это
// DECODE_ERROR, а не молчаливое приведение типов.
func decodeAnalysis(raw []byte) (*models.ImageAnalysis, error) {
	var analysis models.ImageAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDecode, "поле analysis имеет неожиданную форму")
	}
	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}
	return &analysis, nil
}
