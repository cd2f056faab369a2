package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/delordemm1/go-auth-sessions/internal/notification/templates"
)

// EmailSender delivers a single rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// MailerConfig configures the verification mailer.
type MailerConfig struct {
	Sender    EmailSender
	Templates *templates.Engine
	Logger    *slog.Logger
	// WebOrigin is the base of the link the user opens, e.g. https://app.example.com.
	WebOrigin string
	// TokenTTL is only used to tell the user how long the link stays valid.
	TokenTTL time.Duration
}

// Mailer renders scenario templates and hands them to an EmailSender.
// Sends are synchronous so callers can surface delivery failures.
type Mailer struct {
	sender    EmailSender
	templates *templates.Engine
	log       *slog.Logger
	webOrigin string
	tokenTTL  time.Duration
}

func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{
		sender:    cfg.Sender,
		templates: cfg.Templates,
		log:       cfg.Logger,
		webOrigin: cfg.WebOrigin,
		tokenTTL:  cfg.TokenTTL,
	}
}

// VerificationLink builds the web link carrying the compound credential.
func (m *Mailer) VerificationLink(credential string) string {
	return m.webOrigin + "/verify-email?token=" + url.QueryEscape(credential)
}

// DeliverVerification sends the email verification link to email.
func (m *Mailer) DeliverVerification(ctx context.Context, email, credential string) error {
	out, err := templates.Render(ctx, m.templates, templates.VerifyEmail, templates.VerifyEmailData{
		Email:     email,
		Link:      m.VerificationLink(credential),
		ExpiresIn: humanize(m.tokenTTL),
	})
	if err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	if err := m.sender.Send(ctx, email, out.Subject, out.EmailHTML, out.EmailText); err != nil {
		return err
	}
	m.log.Info("verification email dispatched", "recipient", email)
	return nil
}

func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	case d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	default:
		return fmt.Sprintf("%d minutes", int(d.Round(time.Minute)/time.Minute))
	}
}
