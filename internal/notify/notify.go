// Package notify delivers acceptance notifications to students. Delivery is
// fire-and-forget: a failed send is logged and never propagated into the
// transaction that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/chronus-app/chronus/internal/models"
)

// Notifier sends a notification to a collaborator whose offer was accepted.
type Notifier interface {
	// NotifyAcceptance tells the collaborator that the applicant accepted
	// their offer.
	NotifyAcceptance(ctx context.Context, applicant, collaborator *models.Student) error
}

// Config holds SMTP delivery configuration.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers notifications over SMTP.
type SMTPNotifier struct {
	cfg    Config
	logger *slog.Logger
}

// NewSMTPNotifier creates a notifier that delivers over SMTP.
func NewSMTPNotifier(cfg Config, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// NotifyAcceptance sends the acceptance email to the collaborator.
func (n *SMTPNotifier) NotifyAcceptance(ctx context.Context, applicant, collaborator *models.Student) error {
	subject := "Chronus: new collaboration"
	body := fmt.Sprintf("%s just accepted your collaboration offer.", applicant.FullName())

	msg := []byte("From: " + n.cfg.From + "\r\n" +
		"To: " + collaborator.Email + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{collaborator.Email}, msg); err != nil {
		return fmt.Errorf("sending acceptance mail to %s: %w", collaborator.Email, err)
	}

	n.logger.Info("acceptance notification sent", "to", collaborator.Email)
	return nil
}

// NopNotifier drops every notification. Used when SMTP is not configured.
type NopNotifier struct{}

// NotifyAcceptance does nothing.
func (NopNotifier) NotifyAcceptance(ctx context.Context, applicant, collaborator *models.Student) error {
	return nil
}
