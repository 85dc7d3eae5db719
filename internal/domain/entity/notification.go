package entity

import (
	"errors"
	"fmt"
)

// NotificationKind различает варианты уведомления
type NotificationKind string

const (
	NotificationContactAlert NotificationKind = "contact_alert"
	NotificationOTP          NotificationKind = "otp"
)

// ContactAlert: уведомление владельцу сайта о новом сообщении из контактной формы
type ContactAlert struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// OTPMessage: одноразовый код для входа в админ-панель
type OTPMessage struct {
	Destination string `json:"destination"`
	Code        string `json:"code"`
}

// Notification: размеченное объединение: заполнено ровно одно из полей Contact/OTP.
// Передается без изменений и в очередь, и в синхронную отправку.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Contact *ContactAlert    `json:"contact,omitempty"`
	OTP     *OTPMessage      `json:"otp,omitempty"`
}

// NewContactAlertNotification собирает уведомление из сохраненного сообщения
func NewContactAlertNotification(c *Contact) Notification {
	return Notification{
		Kind: NotificationContactAlert,
		Contact: &ContactAlert{
			Name:    c.Name,
			Email:   c.Email,
			Subject: c.Subject,
			Body:    c.Message,
		},
	}
}

// NewOTPNotification собирает уведомление с кодом входа
func NewOTPNotification(destination, code string) Notification {
	return Notification{
		Kind: NotificationOTP,
		OTP:  &OTPMessage{Destination: destination, Code: code},
	}
}

var ErrInvalidNotification = errors.New("invalid notification")

// Validate проверяет, что вариант объединения согласован с Kind
func (n Notification) Validate() error {
	switch n.Kind {
	case NotificationContactAlert:
		if n.Contact == nil || n.OTP != nil {
			return fmt.Errorf("%w: contact_alert requires contact payload only", ErrInvalidNotification)
		}
	case NotificationOTP:
		if n.OTP == nil || n.Contact != nil {
			return fmt.Errorf("%w: otp requires otp payload only", ErrInvalidNotification)
		}
		if n.OTP.Destination == "" || n.OTP.Code == "" {
			return fmt.Errorf("%w: otp destination and code are required", ErrInvalidNotification)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNotification, n.Kind)
	}
	return nil
}

// LogRecipient возвращает описание получателя для логов (без кода)
func (n Notification) LogRecipient() string {
	switch {
	case n.OTP != nil:
		return "otp:" + n.OTP.Destination
	case n.Contact != nil:
		return "contact_from:" + n.Contact.Email
	default:
		return "unknown"
	}
}
