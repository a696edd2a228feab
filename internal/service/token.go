package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/models"
)

// TokenManager отвечает за выпуск и проверку JWT анонимных сессий.
type TokenManager struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string, sessionTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// IssueAnonymous выпускает токен анонимной сессии для принципала.
func (m *TokenManager) IssueAnonymous(principalID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.sessionTTL)

	claims := jwt.MapClaims{
		"sub":  principalID.String(),
		"role": models.RoleAnonymous,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// ParseAccess извлекает идентификатор принципала и роль из токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	role, _ := claims["role"].(string)

	principalID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", err
	}

	return principalID, role, nil
}
