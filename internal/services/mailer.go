package services

import (
	"context"
	"fmt"
	"io"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/config"
)

// InlineImage is an attachment referenced from the HTML body as cid:Name
type InlineImage struct {
	Name   string
	Reader io.Reader
}

// Email is one outgoing message
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	Inline  []InlineImage
}

// Mailer delivers emails
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(email.To...); err != nil {
		return fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(email.Subject)

	if email.HTML != "" {
		msg.SetBodyString(mail.TypeTextHTML, email.HTML)
		if email.Text != "" {
			msg.AddAlternativeString(mail.TypeTextPlain, email.Text)
		}
	} else {
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
	}

	for _, img := range email.Inline {
		if err := msg.EmbedReader(img.Name, img.Reader); err != nil {
			return fmt.Errorf("embed %s: %w", img.Name, err)
		}
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer logs emails instead of sending them. It is used when no SMTP
// relay is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("email not sent: no SMTP relay configured",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("inline_images", len(email.Inline)))
	return nil
}
