package service

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
)

const (
	contactNameMaxLen    = 100
	contactSubjectMaxLen = 200
	contactListMaxLimit  = 100
)

// ContactInput: данные контактной формы
type ContactInput struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required"`
}

// ContactService сохраняет сообщения посетителей и уведомляет владельца сайта
type ContactService struct {
	repo      repository.ContactRepository
	deliverer Deliverer
}

func NewContactService(repo repository.ContactRepository, deliverer Deliverer) (*ContactService, error) {
	if repo == nil || deliverer == nil {
		return nil, fmt.Errorf("contact service dependencies are required")
	}
	return &ContactService{repo: repo, deliverer: deliverer}, nil
}

// Submit сохраняет сообщение и передает уведомление на доставку.
// Сообщение остается сохраненным, даже если доставка не удалась.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*entity.Contact, bool, error) {
	contact := &entity.Contact{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
	}
	if err := validateContact(contact); err != nil {
		return nil, false, err
	}

	if err := s.repo.Create(contact); err != nil {
		return nil, false, fmt.Errorf("failed to save contact: %w", err)
	}

	delivered := s.deliverer.Deliver(ctx, entity.NewContactAlertNotification(contact))
	if !delivered {
		log.Printf("[ContactService] Уведомление о сообщении ID=%d не доставлено", contact.ID)
	}
	return contact, delivered, nil
}

// List возвращает сообщения для админ-панели
func (s *ContactService) List(filters repository.ContactFilters, limit, offset int) ([]entity.Contact, int64, error) {
	if limit <= 0 || limit > contactListMaxLimit {
		limit = contactListMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.List(filters, limit, offset)
}

// Export возвращает все сообщения, подходящие под фильтры, постранично читая репозиторий
func (s *ContactService) Export(filters repository.ContactFilters) ([]entity.Contact, error) {
	filters.Search = strings.TrimSpace(filters.Search)

	var all []entity.Contact
	for offset := 0; ; offset += contactListMaxLimit {
		page, total, err := s.repo.List(filters, contactListMaxLimit, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < contactListMaxLimit || int64(len(all)) >= total {
			return all, nil
		}
	}
}

func validateContact(c *entity.Contact) error {
	switch {
	case c.Name == "" || len([]rune(c.Name)) > contactNameMaxLen:
		return fmt.Errorf("%w: name must be 1-%d characters", apperrors.ErrValidation, contactNameMaxLen)
	case c.Subject == "" || len([]rune(c.Subject)) > contactSubjectMaxLen:
		return fmt.Errorf("%w: subject must be 1-%d characters", apperrors.ErrValidation, contactSubjectMaxLen)
	case c.Message == "":
		return fmt.Errorf("%w: message is required", apperrors.ErrValidation)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("%w: invalid email", apperrors.ErrValidation)
	}
	return nil
}
