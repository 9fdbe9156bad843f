package repository

import (
	"time"
)

// InvalidTokenRepository хранит идентификаторы (jti) отозванных сессионных токенов.
// Токен считается недействительным до его естественного истечения.
type InvalidTokenRepository interface {
	Invalidate(jti string, ttl time.Duration) error
	IsInvalidated(jti string) (bool, error)
}
