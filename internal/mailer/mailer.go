// Package mailer delivers one-time password codes by email.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"filevault/internal/config"
)

// Mailer sends an OTP code to an address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, validFor time.Duration) error
}

// New returns an SMTP mailer, or a log mailer when no SMTP host is configured.
func New(cfg config.MailConfig, log logrus.FieldLogger) Mailer {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, OTP codes will be written to the log")
		return &LogMailer{log: log}
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// LogMailer writes codes to the log. Intended for local development.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer { return &LogMailer{log: log} }

func (m *LogMailer) SendOTP(_ context.Context, to, code string, validFor time.Duration) error {
	m.log.WithFields(logrus.Fields{
		"to":        to,
		"otp":       code,
		"valid_for": validFor.String(),
	}).Info("otp email")
	return nil
}

// SMTPMailer sends plain-text mail through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg  config.MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, validFor time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	if err := m.send(addr, auth, m.cfg.From, []string{to}, buildMessage(m.cfg.From, to, code, validFor)); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

func buildMessage(from, to, code string, validFor time.Duration) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Your verification code is %s.\r\n", code)
	fmt.Fprintf(&b, "It expires in %d minutes.\r\n", int(validFor.Minutes()))
	return []byte(b.String())
}
