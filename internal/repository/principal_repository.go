package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gallery-backend/internal/models"
)

// PrincipalRepository работает с таблицей principals — анонимными
// пользователями галереи.
type PrincipalRepository struct {
	db *sqlx.DB
}

// NewPrincipalRepository создаёт экземпляр.
func NewPrincipalRepository(db *sqlx.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// EnsureAnonymous идемпотентно создаёт анонимного принципала с заданным
// идентификатором. Вызывается перед любой операцией с хранилищами:
// это ворота доступа, а не аутентификация.
func (r *PrincipalRepository) EnsureAnonymous(ctx context.Context, id uuid.UUID) error {
	query := `
		INSERT INTO principals (id, role)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, id, models.RoleAnonymous); err != nil {
		return fmt.Errorf("principal repository: ensure anonymous %w", err)
	}
	return nil
}

// CreateAnonymous создаёт нового анонимного принципала и возвращает его.
func (r *PrincipalRepository) CreateAnonymous(ctx context.Context) (*models.Principal, error) {
	principal := &models.Principal{
		ID:   uuid.New(),
		Role: models.RoleAnonymous,
	}

	query := `
		INSERT INTO principals (id, role)
		VALUES ($1, $2)
		RETURNING created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, principal.ID, principal.Role).Scan(&principal.CreatedAt); err != nil {
		return nil, fmt.Errorf("principal repository: create anonymous %w", err)
	}

	return principal, nil
}
