package service

import (
	"errors"
	"fmt"
)

// Ошибки входа в админ-панель; handlers сопоставляют их со стабильным error_type.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrCooldownActive     = errors.New("cooldown_active")
	// ErrInvalidTransition: операция недопустима в текущем состоянии входа
	ErrInvalidTransition = errors.New("invalid_transition")
	// ErrDeliveryFailed: ни очередь, ни синхронная отправка не сработали
	ErrDeliveryFailed = errors.New("delivery_failed")
)

// CooldownError сообщает, сколько секунд осталось до повторной отправки кода.
// errors.Is(err, ErrCooldownActive) == true.
type CooldownError struct {
	SecondsRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: retry in %d seconds", ErrCooldownActive, e.SecondsRemaining)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
