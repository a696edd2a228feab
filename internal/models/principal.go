package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли принципалов. Сейчас поддерживается только анонимный доступ.
const RoleAnonymous = "anonymous"

// Principal описывает анонимного пользователя галереи. Создаётся лениво
// при первом обращении и служит воротами доступа к хранилищам.
type Principal struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
