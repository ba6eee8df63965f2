// Package notify sends transactional email and SMS.
package notify

import (
	"context"
	"fmt"

	"github.com/fjod/natal_store/internal/config"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	dialer dialer
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	if msg.TextBody != "" {
		gm.SetBody("text/plain", msg.TextBody)
		if msg.HTMLBody != "" {
			gm.AddAlternative("text/html", msg.HTMLBody)
		}
	} else {
		gm.SetBody("text/html", msg.HTMLBody)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	log.Ctx(ctx).Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Ctx(ctx).Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("email not sent: SMTP disabled")
	return nil
}

// NewMailer returns an SMTPMailer when SMTP is configured, LogMailer otherwise.
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return LogMailer{}
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// LogSMSSender logs SMS messages. No SMS provider is integrated.
type LogSMSSender struct{}

func (LogSMSSender) SendSMS(ctx context.Context, phone, text string) error {
	log.Ctx(ctx).Info().Str("phone", phone).Str("text", text).Msg("sms")
	return nil
}
