package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда сессия не прошла вход (нет 2FA или сессия сброшена).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторное создание администратора).
	ErrConflict = errors.New("resource state conflict")
)
