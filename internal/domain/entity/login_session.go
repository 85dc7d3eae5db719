package entity

import "time"

// LoginStage: явное состояние двухфакторного входа
type LoginStage string

const (
	// StageAnonymous: вход не начат, ожидаются логин и пароль
	StageAnonymous LoginStage = "credentials"
	// StageOTPPending: логин и пароль приняты, ожидается одноразовый код
	StageOTPPending LoginStage = "otp"
	// StageAuthenticated: код подтвержден, сессия принадлежит администратору
	StageAuthenticated LoginStage = "authenticated"
)

// LoginSession: серверное состояние входа, привязанное к cookie клиента.
//
// Инвариант: OTPStage == true означает, что PendingUserID и OTPCode заданы.
// Одновременно хранится не больше одного кода; новая выдача перезаписывает код и время.
type LoginSession struct {
	PendingUserID          *uint      `json:"pending_user_id,omitempty"`
	OTPCode                string     `json:"otp_code,omitempty"`
	OTPIssuedAt            *time.Time `json:"otp_issued_at,omitempty"`
	OTPStage               bool       `json:"otp_stage,omitempty"`
	LastVerificationFailed bool       `json:"last_verification_failed,omitempty"`
	MaskedDestination      string     `json:"masked_destination,omitempty"`

	AuthenticatedUserID *uint      `json:"authenticated_user_id,omitempty"`
	AuthenticatedAt     *time.Time `json:"authenticated_at,omitempty"`
}

// Stage вычисляет текущее состояние по полям сессии
func (s *LoginSession) Stage() LoginStage {
	if s == nil {
		return StageAnonymous
	}
	if s.AuthenticatedUserID != nil {
		return StageAuthenticated
	}
	if s.OTPStage && s.PendingUserID != nil && s.OTPCode != "" {
		return StageOTPPending
	}
	return StageAnonymous
}

// StartOTP записывает выданный код, переводя сессию в StageOTPPending
func (s *LoginSession) StartOTP(userID uint, code string, issuedAt time.Time, masked string) {
	id := userID
	at := issuedAt
	s.PendingUserID = &id
	s.OTPCode = code
	s.OTPIssuedAt = &at
	s.OTPStage = true
	s.MaskedDestination = masked
}

// ClearOTP удаляет все поля, связанные с одноразовым кодом
func (s *LoginSession) ClearOTP() {
	s.PendingUserID = nil
	s.OTPCode = ""
	s.OTPIssuedAt = nil
	s.OTPStage = false
	s.LastVerificationFailed = false
	s.MaskedDestination = ""
}

// IsEmpty сообщает, что в сессии не осталось состояния входа
func (s *LoginSession) IsEmpty() bool {
	return s.Stage() == StageAnonymous && s.PendingUserID == nil && s.OTPCode == "" &&
		s.OTPIssuedAt == nil && !s.LastVerificationFailed && s.MaskedDestination == ""
}
