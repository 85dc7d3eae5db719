package repository

import (
	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с учетными записями админ-панели
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByUsername(username string) (*entity.User, error)
	// TouchLastLogin отмечает время успешного входа
	TouchLastLogin(id uint) error
}
