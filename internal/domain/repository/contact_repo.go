package repository

import (
	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

// ContactFilters: фильтры списка сообщений контактной формы
type ContactFilters struct {
	// Search ищет подстроку в имени, email, теме и тексте
	Search string
}

// ContactRepository определяет методы для работы с сообщениями контактной формы
type ContactRepository interface {
	Create(contact *entity.Contact) error
	// List возвращает сообщения от новых к старым и общее количество
	List(filters ContactFilters, limit, offset int) ([]entity.Contact, int64, error)
}
