package client

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"elearning-backend/internal/config"

	mail "github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

type Mail struct {
	To       string
	Subject  string
	Template string // file name under templates/
	Data     any
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

type smtpMailerImpl struct {
	cfg       config.SMTP
	templates *template.Template
}

func NewMailer(cfg *config.SMTP) (Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &smtpMailerImpl{
		cfg:       *cfg,
		templates: templates,
	}, nil
}

func (m *smtpMailerImpl) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *smtpMailerImpl) Send(ctx context.Context, msg Mail) error {
	body, err := m.render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	message := mail.NewMsg()
	if err := message.FromFormat(m.cfg.From, m.cfg.User); err != nil {
		return fmt.Errorf("set mail sender: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return fmt.Errorf("set mail recipient: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextHTML, body)

	c, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// NopMailer drops every message. Used when no SMTP host is configured.
type NopMailer struct{}

func (NopMailer) Send(context.Context, Mail) error { return nil }
