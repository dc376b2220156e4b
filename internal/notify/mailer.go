package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/PolyRides/firefunction-postsAnalyze/config"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
)

// Message is an operator-facing email, sent when a post cannot be
// processed and a human needs to look at it.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Mailer sends operator email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer when mail is configured, otherwise
// a mailer that logs and drops.
func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" || cfg.To == "" {
		logger.Info("Mail not configured; operator emails will be logged only")
		return &LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer delivers mail over SMTP with plain auth.
type SMTPMailer struct {
	cfg config.MailConfig
}

// Send delivers one message
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.cfg.From
	}
	if msg.To == "" {
		msg.To = m.cfg.To
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", msg.From)
	fmt.Fprintf(&body, "To: %s\r\n", msg.To)
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("\r\n")
	body.WriteString(msg.Text)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, msg.From, []string{msg.To}, []byte(body.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer logs messages instead of delivering them.
type LogMailer struct{}

// Send logs the message and succeeds
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	logger.Warn("Operator email (mail not configured)",
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
