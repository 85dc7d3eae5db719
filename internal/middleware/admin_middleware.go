package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
)

// AdminAuthenticator возвращает администратора, завершившего двухфакторный вход
type AdminAuthenticator interface {
	AuthenticatedUser(ctx context.Context, sessionID string) (*entity.User, error)
}

// RequireAdmin пропускает только сессии в состоянии authenticated.
// Должен стоять после SessionCookie.
func RequireAdmin(auth AdminAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.AuthenticatedUser(c.Request.Context(), SessionID(c))
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUnauthorized):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Требуется вход в админ-панель", "error_type": "unauthorized"})
			case errors.Is(err, apperrors.ErrForbidden):
				c.JSON(http.StatusForbidden, gin.H{"error": "Доступ запрещен", "error_type": "forbidden"})
			default:
				log.Printf("[RequireAdmin] Ошибка проверки сессии: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера", "error_type": "internal_server_error"})
			}
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("username", user.Username)
		c.Next()
	}
}
