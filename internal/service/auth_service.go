package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/models"
)

// PrincipalRepository описывает взаимодействие сервиса с хранилищем принципалов.
type PrincipalRepository interface {
	CreateAnonymous(ctx context.Context) (*models.Principal, error)
	EnsureAnonymous(ctx context.Context, id uuid.UUID) error
}

// AnonymousSession — выданная анонимная сессия.
type AnonymousSession struct {
	PrincipalID uuid.UUID `json:"principal_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService выпускает анонимные сессии. Других способов входа в галерее нет.
type AuthService struct {
	principals PrincipalRepository
	tokens     *TokenManager
}

// NewAuthService создаёт сервис.
func NewAuthService(principals PrincipalRepository, tokens *TokenManager) *AuthService {
	return &AuthService{principals: principals, tokens: tokens}
}

// SignInAnonymously создаёт анонимного принципала и выдаёт токен сессии.
func (s *AuthService) SignInAnonymously(ctx context.Context) (*AnonymousSession, error) {
	principal, err := s.principals.CreateAnonymous(ctx)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.IssueAnonymous(principal.ID)
	if err != nil {
		return nil, err
	}

	return &AnonymousSession{
		PrincipalID: principal.ID,
		AccessToken: token,
		ExpiresAt:   exp,
	}, nil
}
