// Package mailer delivers transactional email such as password reset links.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	mail "gopkg.in/mail.v2"
)

type Message struct {
	To      string
	Subject string
	Text    string
}

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer sends plain-text mail through an authenticated SMTP relay.
type SMTPMailer struct {
	dialer dialer
	from   string
	logger *slog.Logger
}

func NewSMTPMailer(logger *slog.Logger, host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: mail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.compose(msg)); err != nil {
		m.logger.Error("Failed to send email", slog.String("to", msg.To), slog.Any("error", err))
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	m.logger.Info("Email sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) compose(msg Message) *mail.Message {
	out := mail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", msg.Text)
	return out
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("Email not sent, no SMTP host configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}
