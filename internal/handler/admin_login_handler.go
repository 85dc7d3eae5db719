package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/portfolio-api/internal/middleware"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
	"github.com/yourusername/portfolio-api/internal/service"
)

const loginPath = "/admin/login"

// AdminLoginHandler обрабатывает двухфакторный вход в админ-панель
type AdminLoginHandler struct {
	loginService *service.LoginService
	secureCookie bool
}

// NewAdminLoginHandler создает обработчик входа
func NewAdminLoginHandler(loginService *service.LoginService, secureCookie bool) *AdminLoginHandler {
	return &AdminLoginHandler{loginService: loginService, secureCookie: secureCookie}
}

// LoginRequest: форма входа; принимается как form-urlencoded или JSON
type LoginRequest struct {
	Step     string `form:"step" json:"step" binding:"required,oneof=credentials otp"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	OTP      string `form:"otp" json:"otp"`
	Resend   string `form:"resend" json:"resend"`
}

// GetLogin возвращает текущее состояние входа. Повторные запросы ничего не отправляют.
// GET /admin/login
func (h *AdminLoginHandler) GetLogin(c *gin.Context) {
	view, err := h.loginService.State(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.handleLoginError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PostLogin выполняет шаг входа
// POST /admin/login
func (h *AdminLoginHandler) PostLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation_error", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	sid := middleware.SessionID(c)

	switch {
	case req.Step == "credentials":
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required", "error_type": "validation_error"})
			return
		}
		if _, err := h.loginService.SubmitCredentials(ctx, sid, strings.TrimSpace(req.Username), req.Password); err != nil {
			h.handleLoginError(c, err)
			return
		}
		// Перезагрузка страницы после редиректа выполняет GET и не отправляет код повторно
		c.Redirect(http.StatusSeeOther, loginPath)

	case req.Resend != "":
		if _, err := h.loginService.RequestResend(ctx, sid); err != nil {
			h.handleLoginError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, loginPath)

	default:
		code := strings.TrimSpace(req.OTP)
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "OTP is required", "error_type": "validation_error"})
			return
		}
		view, err := h.loginService.SubmitOTP(ctx, sid, code)
		if err != nil {
			h.handleLoginError(c, err)
			return
		}
		middleware.SetSessionCookie(c, view.SessionID, h.secureCookie)
		c.JSON(http.StatusOK, view)
	}
}

// Reset сбрасывает незавершенный вход и возвращает на первый шаг
// POST /admin/reset
func (h *AdminLoginHandler) Reset(c *gin.Context) {
	if err := h.loginService.Reset(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.handleLoginError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, loginPath)
}

// Logout завершает сессию администратора и выдает новый идентификатор сессии
// POST /admin/logout
func (h *AdminLoginHandler) Logout(c *gin.Context) {
	if err := h.loginService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.handleLoginError(c, err)
		return
	}
	middleware.SetSessionCookie(c, uuid.NewString(), h.secureCookie)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AdminLoginHandler) handleLoginError(c *gin.Context, err error) {
	var cooldownErr *service.CooldownError

	switch {
	case errors.As(err, &cooldownErr):
		c.Header("Retry-After", strconv.Itoa(cooldownErr.SecondsRemaining))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Please wait before requesting a new code",
			"error_type":  "cooldown_active",
			"retry_after": cooldownErr.SecondsRemaining,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials or not an admin user", "error_type": "invalid_credentials"})
	case errors.Is(err, service.ErrInvalidOTP):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid OTP", "error_type": "invalid_otp"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Action is not allowed at this login step", "error_type": "invalid_transition"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка валидации данных", "error_type": "validation_error"})
	default:
		log.Printf("[AdminLoginHandler] Login Error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера", "error_type": "internal_server_error"})
	}
}
