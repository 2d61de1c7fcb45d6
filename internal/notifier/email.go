package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPConfig holds the mail server settings and addresses.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

// Email sends notifications as HTML mail over SMTP with mandatory STARTTLS.
type Email struct {
	client mailClient
	from   string
	to     string
}

// NewEmail creates an Email sender for cfg.
func NewEmail(cfg SMTPConfig) (*Email, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Email{client: client, from: cfg.From, to: cfg.To}, nil
}

// Send delivers one HTML message to the configured recipient.
func (e *Email) Send(ctx context.Context, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat("Ad Watch", e.from); err != nil {
		return fmt.Errorf("set from %q: %w", e.from, err)
	}
	if err := msg.To(e.to); err != nil {
		return fmt.Errorf("set to %q: %w", e.to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
