package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
	"github.com/yourusername/portfolio-api/internal/service"
)

// ContactHandler принимает сообщения контактной формы
type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit сохраняет сообщение и уведомляет владельца сайта
// POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req service.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation_error", "details": err.Error()})
		return
	}

	contact, delivered, err := h.contactService.Submit(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
			return
		}
		log.Printf("[ContactHandler] Ошибка сохранения сообщения: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера", "error_type": "internal_server_error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        contact.ID,
		"delivered": delivered,
		"message":   "Thank you for your message!",
	})
}
