package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя. Занятый username возвращается как ErrConflict.
func (r *UserRepo) Create(user *entity.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username %q already exists", apperrors.ErrConflict, user.Username)
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername возвращает пользователя по имени пользователя
func (r *UserRepo) GetByUsername(username string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin обновляет last_login без хуков (пароль не трогаем)
func (r *UserRepo) TouchLastLogin(id uint) error {
	now := time.Now()
	return r.db.Model(&entity.User{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"last_login": now, "updated_at": now}).Error
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
