// Package mail sends account notifications over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/password-policy/pkg/logger"
)

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.message(to, subject, body)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) message(to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

// Service composes the password notifications.
type Service struct {
	sender Sender
}

func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

func (s *Service) SendPasswordChanged(ctx context.Context, email, name string, changedAt time.Time) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nThe password of your account was changed on %s.\n"+
			"If you did not make this change, contact support immediately.\n",
		name, changedAt.UTC().Format("2006-01-02 15:04 MST"))
	return s.sender.Send(ctx, email, "Your password was changed", body)
}

func (s *Service) SendPasswordExpired(ctx context.Context, email, name string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour password has expired. Sign in and choose a new one to keep using your account.\n",
		name)
	return s.sender.Send(ctx, email, "Your password has expired", body)
}

// LogSender logs messages instead of sending them. Used when SMTP is disabled.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("Mail not sent, SMTP disabled", "to", to, "subject", subject)
	return nil
}
