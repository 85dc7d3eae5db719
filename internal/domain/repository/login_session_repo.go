package repository

import (
	"context"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// LoginSessionRepository хранит состояние входа по идентификатору сессии клиента.
// Срок жизни записей задается реализацией.
type LoginSessionRepository interface {
	// Get возвращает сохраненную сессию или пустую, если записи нет
	Get(ctx context.Context, sessionID string) (*entity.LoginSession, error)
	Save(ctx context.Context, sessionID string, session *entity.LoginSession) error
	Delete(ctx context.Context, sessionID string) error
}
