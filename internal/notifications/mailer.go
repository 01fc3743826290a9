package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Mailer delivers a rendered notification to a single recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, templateID string, variables map[string]any) error
}

// LogMailer writes notifications to the structured log. Used in development.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, templateID string, variables map[string]any) error {
	body, err := Render(templateID, variables)
	if err != nil {
		return err
	}
	if m.logg != nil {
		logCtx := m.logg.WithFields(ctx, map[string]any{
			"to":       to,
			"subject":  subject,
			"template": templateID,
			"body":     body,
		})
		m.logg.Info(logCtx, "notification delivered to log")
	}
	return nil
}

const defaultSMTPTimeout = 15 * time.Second

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer delivers plain-text mail through an SMTP relay. Every send is
// bounded by the configured timeout so a stalled relay cannot hold a batch.
type SMTPMailer struct {
	from    string
	timeout time.Duration
	client  mailSender
}

func NewSMTPMailer(cfg config.MailerConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("mailer from address is required")
	}
	timeout := cfg.SMTPTimeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(timeout),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{from: cfg.From, timeout: timeout, client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, templateID string, variables map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := Render(templateID, variables)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(sanitizeHeader(subject))
	msg.SetBodyString(mail.TypeTextPlain, body)

	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.DialAndSendWithContext(sendCtx, msg)
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// NewMailer selects the mailer implementation named by cfg.Driver.
func NewMailer(cfg config.MailerConfig, logg *logger.Logger) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "log":
		return NewLogMailer(logg), nil
	case "smtp":
		return NewSMTPMailer(cfg)
	default:
		return nil, fmt.Errorf("unknown mailer driver %q", cfg.Driver)
	}
}
