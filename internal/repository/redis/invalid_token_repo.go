package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// invalidTokenKeyPrefix - префикс ключей отозванных сессионных токенов
const invalidTokenKeyPrefix = "session:invalid:"

// InvalidTokenRepo реализует repository.InvalidTokenRepository поверх Redis.
// TTL ключа равен остатку жизни токена, поэтому записи очищаются сами.
type InvalidTokenRepo struct {
	client redis.UniversalClient
	ctx    context.Context
}

// NewInvalidTokenRepo создает новый репозиторий отозванных токенов и возвращает ошибку при проблемах
func NewInvalidTokenRepo(client redis.UniversalClient) (*InvalidTokenRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for InvalidTokenRepo")
	}
	return &InvalidTokenRepo{
		client: client,
		ctx:    context.Background(),
	}, nil
}

// Invalidate помечает токен с данным jti как отозванный до истечения ttl
func (r *InvalidTokenRepo) Invalidate(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Токен уже истек - хранить отметку незачем
		return nil
	}
	return r.client.Set(r.ctx, invalidTokenKeyPrefix+jti, "1", ttl).Err()
}

// IsInvalidated проверяет, был ли токен с данным jti отозван
func (r *InvalidTokenRepo) IsInvalidated(jti string) (bool, error) {
	_, err := r.client.Get(r.ctx, invalidTokenKeyPrefix+jti).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
