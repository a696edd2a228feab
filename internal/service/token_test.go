package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/models"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	principalID := uuid.New()

	token, exp, err := manager.IssueAnonymous(principalID)
	if err != nil {
		t.Fatalf("выпуск токена не удался: %v", err)
	}
	if token == "" {
		t.Fatal("токен пустой")
	}
	if !exp.After(time.Now()) {
		t.Fatal("время истечения должно быть в будущем")
	}

	parsedID, role, err := manager.ParseAccess(token)
	if err != nil {
		t.Fatalf("разбор токена не удался: %v", err)
	}
	if parsedID != principalID {
		t.Fatalf("принципал %s, ожидался %s", parsedID, principalID)
	}
	if role != models.RoleAnonymous {
		t.Fatalf("роль %q, ожидалась %q", role, models.RoleAnonymous)
	}
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewTokenManager("secret-one", time.Hour)
	verifier := NewTokenManager("secret-two", time.Hour)

	token, _, err := issuer.IssueAnonymous(uuid.New())
	if err != nil {
		t.Fatalf("выпуск токена не удался: %v", err)
	}

	if _, _, err := verifier.ParseAccess(token); err == nil {
		t.Fatal("токен с чужой подписью должен отклоняться")
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute)

	token, _, err := manager.IssueAnonymous(uuid.New())
	if err != nil {
		t.Fatalf("выпуск токена не удался: %v", err)
	}

	if _, _, err := manager.ParseAccess(token); err == nil {
		t.Fatal("просроченный токен должен отклоняться")
	}
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	if _, _, err := manager.ParseAccess("not-a-token"); err == nil {
		t.Fatal("мусорный токен должен отклоняться")
	}
}
