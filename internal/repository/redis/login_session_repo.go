package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// LoginSessionRepo реализует repository.LoginSessionRepository поверх Redis.
// Сессия хранится JSON-строкой с TTL, который продлевается при каждом сохранении.
type LoginSessionRepo struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewLoginSessionRepo создает новый репозиторий сессий входа
func NewLoginSessionRepo(client redis.UniversalClient, keyPrefix string, ttl time.Duration) (*LoginSessionRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for LoginSessionRepo")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if keyPrefix == "" {
		keyPrefix = "session"
	}
	return &LoginSessionRepo{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (r *LoginSessionRepo) key(sessionID string) string {
	return r.keyPrefix + ":" + sessionID
}

// Get получает сессию; отсутствие ключа: это пустая сессия, а не ошибка
func (r *LoginSessionRepo) Get(ctx context.Context, sessionID string) (*entity.LoginSession, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &entity.LoginSession{}, nil
		}
		return nil, fmt.Errorf("failed to load login session: %w", err)
	}

	var session entity.LoginSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode login session: %w", err)
	}
	return &session, nil
}

// Save сохраняет сессию целиком
func (r *LoginSessionRepo) Save(ctx context.Context, sessionID string, session *entity.LoginSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err()
}

// Delete удаляет сессию
func (r *LoginSessionRepo) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}
