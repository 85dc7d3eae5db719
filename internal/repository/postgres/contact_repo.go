package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
)

// ContactRepo реализует repository.ContactRepository
type ContactRepo struct {
	db *gorm.DB
}

// NewContactRepo создает новый репозиторий сообщений контактной формы
func NewContactRepo(db *gorm.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// Create сохраняет сообщение
func (r *ContactRepo) Create(contact *entity.Contact) error {
	return r.db.Create(contact).Error
}

// List возвращает сообщения с поиском и пагинацией, новые первыми
func (r *ContactRepo) List(filters repository.ContactFilters, limit, offset int) ([]entity.Contact, int64, error) {
	query := r.db.Model(&entity.Contact{})
	if search := strings.TrimSpace(filters.Search); search != "" {
		like := "%" + escapeLike(search) + "%"
		query = query.Where(
			"name ILIKE ? OR email ILIKE ? OR subject ILIKE ? OR message ILIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []entity.Contact
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&contacts).Error
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

// escapeLike экранирует спецсимволы шаблона LIKE
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
