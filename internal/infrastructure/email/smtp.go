package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/ports"
)

// SMTPChannel sends through an SMTP relay with mandatory STARTTLS.
type SMTPChannel struct {
	cfg        config.SMTPConfig
	senderName string
	dial       func(ctx context.Context, msg *mail.Msg) error
}

var _ ports.DeliveryChannel = (*SMTPChannel)(nil)

// NewSMTPChannel wires relay settings; recipients go in Bcc.
func NewSMTPChannel(cfg config.SMTPConfig, senderName string) *SMTPChannel {
	ch := &SMTPChannel{cfg: cfg, senderName: senderName}
	ch.dial = ch.dialAndSend
	return ch
}

// Name identifies the channel.
func (s *SMTPChannel) Name() string { return "smtp" }

// Send delivers one batch in a single message.
func (s *SMTPChannel) Send(ctx context.Context, recipients []string, subject, renderedBody string) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("smtp: %w: missing credentials", errNotConfigured)
	}
	msg, err := s.buildMessage(recipients, subject, renderedBody)
	if err != nil {
		return err
	}
	if err := s.dial(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPChannel) buildMessage(recipients []string, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.senderName, s.cfg.Username); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.cfg.Username); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	if err := msg.Bcc(recipients...); err != nil {
		return nil, fmt.Errorf("smtp bcc: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (s *SMTPChannel) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
