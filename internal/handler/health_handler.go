package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/portfolio-api/internal/service"
)

// HealthHandler отвечает на проверки живости
type HealthHandler struct {
	availability service.Availability
}

// NewHealthHandler создает обработчик; availability может быть nil
func NewHealthHandler(availability service.Availability) *HealthHandler {
	return &HealthHandler{availability: availability}
}

// Health
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	async := false
	if h.availability != nil {
		async = h.availability.IsAvailable(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "delivery_async_available": async})
}
