package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// loginSessionRow: строка таблицы login_sessions
type loginSessionRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Data      string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (loginSessionRow) TableName() string {
	return "login_sessions"
}

// LoginSessionRepo реализует repository.LoginSessionRepository поверх PostgreSQL.
// Вход не зависит от доступности Redis-брокера.
type LoginSessionRepo struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewLoginSessionRepo создает новый репозиторий сессий входа
func NewLoginSessionRepo(db *gorm.DB, ttl time.Duration) (*LoginSessionRepo, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil for LoginSessionRepo")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &LoginSessionRepo{db: db, ttl: ttl, now: time.Now}, nil
}

// Get возвращает сессию или пустую, если записи нет или она истекла
func (r *LoginSessionRepo) Get(ctx context.Context, sessionID string) (*entity.LoginSession, error) {
	var row loginSessionRow
	err := r.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", sessionID, r.now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &entity.LoginSession{}, nil
		}
		return nil, err
	}
	return decodeLoginSession(row.Data)
}

// Save записывает сессию и продлевает срок ее жизни
func (r *LoginSessionRepo) Save(ctx context.Context, sessionID string, session *entity.LoginSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal login session: %w", err)
	}
	row := loginSessionRow{ID: sessionID, Data: string(data), ExpiresAt: r.now().Add(r.ttl)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(&row).Error
}

// Delete удаляет сессию; отсутствие записи не ошибка
func (r *LoginSessionRepo) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&loginSessionRow{}).Error
}

// DeleteExpired удаляет истекшие сессии и возвращает их количество
func (r *LoginSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&loginSessionRow{})
	return res.RowsAffected, res.Error
}

func decodeLoginSession(data string) (*entity.LoginSession, error) {
	var session entity.LoginSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login session: %w", err)
	}
	return &session, nil
}
