package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
)

const (
	otpSubject          = "Your Admin Panel OTP"
	contactSubjectTrail = "-[Contact Form]"
)

// Mailer отправляет уведомления по почте. Делает одну попытку:
// повторы выполняет воркер очереди.
type Mailer interface {
	Send(ctx context.Context, n entity.Notification) error
}

// NoopMailer используется, когда отправка почты выключена (локальная разработка)
type NoopMailer struct{}

func (m *NoopMailer) Send(ctx context.Context, n entity.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	log.Printf("[Mailer] noop send kind=%s to=%s", n.Kind, n.LogRecipient())
	return nil
}

// NewMailer возвращает ResendMailer, если отправка включена, иначе NoopMailer
func NewMailer(enabled bool, apiKey, from, siteOwner string) (Mailer, error) {
	if !enabled {
		log.Printf("[Mailer] Отправка почты выключена, используется NoopMailer")
		return &NoopMailer{}, nil
	}
	m, err := NewResendMailer(apiKey, from, siteOwner)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ResendMailer отправляет письма через Resend REST API.
type ResendMailer struct {
	from      string
	siteOwner string
	client    *resend.Client
}

func NewResendMailer(apiKey, from, siteOwner string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	if siteOwner == "" {
		return nil, fmt.Errorf("site owner email is required")
	}
	return &ResendMailer{
		from:      from,
		siteOwner: siteOwner,
		client:    resend.NewClient(apiKey),
	}, nil
}

func (m *ResendMailer) Send(ctx context.Context, n entity.Notification) error {
	params, err := buildEmail(m.from, m.siteOwner, n)
	if err != nil {
		return err
	}

	if _, err := m.client.Emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{}); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// buildEmail собирает письмо для конкретного вида уведомления
func buildEmail(from, siteOwner string, n entity.Notification) (*resend.SendEmailRequest, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	switch n.Kind {
	case entity.NotificationOTP:
		text := fmt.Sprintf("Your OTP for admin login is: %s", n.OTP.Code)
		return &resend.SendEmailRequest{
			From:    from,
			To:      []string{n.OTP.Destination},
			Subject: otpSubject,
			Text:    text,
		}, nil

	case entity.NotificationContactAlert:
		c := n.Contact
		text := fmt.Sprintf("Name: %s\nEmail: %s\nSubject: %s\n\n%s", c.Name, c.Email, c.Subject, c.Body)
		htmlBody := fmt.Sprintf(
			"<p><strong>Name:</strong> %s</p><p><strong>Email:</strong> %s</p><p><strong>Subject:</strong> %s</p><p>%s</p>",
			html.EscapeString(c.Name),
			html.EscapeString(c.Email),
			html.EscapeString(c.Subject),
			strings.ReplaceAll(html.EscapeString(c.Body), "\n", "<br>"),
		)
		return &resend.SendEmailRequest{
			From:    from,
			To:      []string{siteOwner},
			ReplyTo: c.Email,
			Subject: c.Subject + contactSubjectTrail,
			Text:    text,
			Html:    htmlBody,
		}, nil
	}

	return nil, fmt.Errorf("%w: unsupported kind %q", entity.ErrInvalidNotification, n.Kind)
}
