package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
)

// LoginView: то, что отображается на странице входа
type LoginView struct {
	Stage                  entity.LoginStage `json:"stage"`
	MaskedDestination      string            `json:"masked_destination,omitempty"`
	CooldownRemaining      int               `json:"cooldown_remaining"`
	CanResend              bool              `json:"can_resend"`
	LastVerificationFailed bool              `json:"last_verification_failed"`
	Username               string            `json:"username,omitempty"`
	// Delivered заполняется только после выдачи кода
	Delivered *bool `json:"delivered,omitempty"`
	// SessionID: новый идентификатор сессии после успешного входа
	SessionID string `json:"-"`
}

// LoginService реализует двухфакторный вход администратора:
// логин и пароль, затем одноразовый код, отправленный на почту.
type LoginService struct {
	users     repository.UserRepository
	sessions  repository.LoginSessionRepository
	issuer    *OTPIssuer
	deliverer Deliverer
	cooldown  time.Duration
	now       func() time.Time
	locks     *sessionLocks
}

func NewLoginService(
	users repository.UserRepository,
	sessions repository.LoginSessionRepository,
	issuer *OTPIssuer,
	deliverer Deliverer,
	cooldown time.Duration,
) (*LoginService, error) {
	if users == nil || sessions == nil || issuer == nil || deliverer == nil {
		return nil, fmt.Errorf("login service dependencies are required")
	}
	if cooldown <= 0 {
		return nil, fmt.Errorf("otp cooldown must be positive")
	}
	return &LoginService{
		users:     users,
		sessions:  sessions,
		issuer:    issuer,
		deliverer: deliverer,
		cooldown:  cooldown,
		now:       time.Now,
		locks:     newSessionLocks(),
	}, nil
}

// State возвращает текущее состояние входа. Ничего не выдает и не отправляет,
// поэтому перезагрузка страницы не приводит к повторной отправке кода.
func (s *LoginService) State(ctx context.Context, sessionID string) (*LoginView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load login session: %w", err)
	}
	return s.view(ctx, session), nil
}

// SubmitCredentials проверяет логин и пароль и выдает код.
// В состоянии ожидания кода начинает вход заново.
func (s *LoginService) SubmitCredentials(ctx context.Context, sessionID, username, password string) (*LoginView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load login session: %w", err)
	}
	if session.Stage() == entity.StageAuthenticated {
		return nil, ErrInvalidTransition
	}

	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[LoginService] Пользователь %q не найден", username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.CheckPassword(password) {
		log.Printf("[LoginService] Неверный пароль для пользователя ID=%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.CanAccessAdmin() {
		log.Printf("[LoginService] Пользователь ID=%d не имеет доступа к админ-панели", user.ID)
		return nil, ErrInvalidCredentials
	}

	session.ClearOTP()
	return s.issueAndSend(ctx, sessionID, session, user)
}

// RequestResend выдает новый код. До истечения cooldown разрешено только
// сразу после неверного кода, и только один раз.
func (s *LoginService) RequestResend(ctx context.Context, sessionID string) (*LoginView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load login session: %w", err)
	}
	if session.Stage() != entity.StageOTPPending {
		return nil, ErrInvalidTransition
	}

	if !session.LastVerificationFailed {
		if remaining := s.cooldownRemaining(session); remaining > 0 {
			return nil, &CooldownError{SecondsRemaining: remaining}
		}
	}

	user, err := s.users.GetByID(*session.PendingUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending user: %w", err)
	}

	session.LastVerificationFailed = false
	return s.issueAndSend(ctx, sessionID, session, user)
}

// SubmitOTP сверяет код. При совпадении сессия получает новый идентификатор
// (LoginView.SessionID), старая запись удаляется.
func (s *LoginService) SubmitOTP(ctx context.Context, sessionID, code string) (*LoginView, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load login session: %w", err)
	}
	if session.Stage() != entity.StageOTPPending {
		return nil, ErrInvalidTransition
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(session.OTPCode)) != 1 {
		session.LastVerificationFailed = true
		if err := s.sessions.Save(ctx, sessionID, session); err != nil {
			return nil, fmt.Errorf("failed to save login session: %w", err)
		}
		log.Printf("[LoginService] Неверный код для пользователя ID=%d", *session.PendingUserID)
		return nil, ErrInvalidOTP
	}

	userID := *session.PendingUserID
	at := s.now()
	authenticated := &entity.LoginSession{AuthenticatedUserID: &userID, AuthenticatedAt: &at}

	newSessionID := uuid.NewString()
	if err := s.sessions.Save(ctx, newSessionID, authenticated); err != nil {
		return nil, fmt.Errorf("failed to save login session: %w", err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		log.Printf("[LoginService] Не удалось удалить старую сессию: %v", err)
	}
	if err := s.users.TouchLastLogin(userID); err != nil {
		log.Printf("[LoginService] Не удалось обновить last_login для пользователя ID=%d: %v", userID, err)
	}
	log.Printf("[LoginService] Пользователь ID=%d вошел в админ-панель", userID)

	view := s.view(ctx, authenticated)
	view.SessionID = newSessionID
	return view, nil
}

// Reset удаляет состояние входа; повторный вызов безопасен
func (s *LoginService) Reset(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete login session: %w", err)
	}
	return nil
}

// Logout завершает сессию администратора
func (s *LoginService) Logout(ctx context.Context, sessionID string) error {
	return s.Reset(ctx, sessionID)
}

// AuthenticatedUser возвращает администратора сессии или ErrUnauthorized
func (s *LoginService) AuthenticatedUser(ctx context.Context, sessionID string) (*entity.User, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load login session: %w", err)
	}
	if session.Stage() != entity.StageAuthenticated {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.GetByID(*session.AuthenticatedUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.CanAccessAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return user, nil
}

// issueAndSend выдает код, сохраняет его в сессии и передает на доставку.
// Неудачная доставка не откатывает выдачу: пользователь может запросить код повторно.
func (s *LoginService) issueAndSend(ctx context.Context, sessionID string, session *entity.LoginSession, user *entity.User) (*LoginView, error) {
	code, issuedAt, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}
	session.StartOTP(user.ID, code, issuedAt, MaskDestination(user.Email))
	if err := s.sessions.Save(ctx, sessionID, session); err != nil {
		return nil, fmt.Errorf("failed to save login session: %w", err)
	}

	delivered := s.deliverer.Deliver(ctx, entity.NewOTPNotification(user.Email, code))
	if !delivered {
		log.Printf("[LoginService] Код для пользователя ID=%d не доставлен", user.ID)
	}

	view := s.view(ctx, session)
	view.Delivered = &delivered
	return view, nil
}

func (s *LoginService) view(ctx context.Context, session *entity.LoginSession) *LoginView {
	v := &LoginView{Stage: session.Stage()}
	switch v.Stage {
	case entity.StageOTPPending:
		v.MaskedDestination = session.MaskedDestination
		v.LastVerificationFailed = session.LastVerificationFailed
		v.CooldownRemaining = s.cooldownRemaining(session)
		v.CanResend = v.LastVerificationFailed || v.CooldownRemaining == 0
	case entity.StageAuthenticated:
		if user, err := s.users.GetByID(*session.AuthenticatedUserID); err == nil {
			v.Username = user.Username
		}
	}
	return v
}

// cooldownRemaining: целое число секунд до конца cooldown, округленное вверх
func (s *LoginService) cooldownRemaining(session *entity.LoginSession) int {
	if session.OTPIssuedAt == nil {
		return 0
	}
	remaining := s.cooldown - s.now().Sub(*session.OTPIssuedAt)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// sessionLocks сериализует операции над одной сессией внутри процесса
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
