// Package mail sends outbound email through SMTP or, in development, the log.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	From   string
	dialer *gomail.Dialer
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		From:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// ConsoleSender writes messages to the log instead of sending them.
type ConsoleSender struct {
	From string
	log  zerolog.Logger
}

func NewConsoleSender(from string, log zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{From: from, log: log}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.log.Info().
		Str("from", s.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("email")
	return nil
}

// New picks the backend named by cfg.Backend.
func New(cfg config.MailConfig, log zerolog.Logger) Sender {
	if cfg.Backend == "smtp" {
		return NewSMTPSender(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.From)
	}
	return NewConsoleSender(cfg.From, log)
}

var welcomeHTML = template.Must(template.New("welcome").Parse(
	`<p>Hello {{.Name}},</p><p>Your CRM account <strong>{{.Username}}</strong> is ready.</p>`))

// WelcomeMessage builds the email sent after sign-up.
func WelcomeMessage(to, name, username string) (Message, error) {
	var body bytes.Buffer
	if err := welcomeHTML.Execute(&body, map[string]string{"Name": name, "Username": username}); err != nil {
		return Message{}, fmt.Errorf("render welcome email: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Welcome to the CRM",
		Text:    fmt.Sprintf("Hello %s,\n\nYour CRM account %s is ready.\n", name, username),
		HTML:    body.String(),
	}, nil
}
