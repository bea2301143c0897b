package email

import (
	"context"
	"errors"
	"log/slog"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/ports"
)

const defaultSender = "onboarding@resend.dev"

// FallbackChannel retries a failed batch on the secondary channel.
type FallbackChannel struct {
	primary   ports.DeliveryChannel
	secondary ports.DeliveryChannel
	logger    *slog.Logger
}

var _ ports.DeliveryChannel = (*FallbackChannel)(nil)

// NewFallbackChannel chains primary and secondary.
func NewFallbackChannel(primary, secondary ports.DeliveryChannel, logger *slog.Logger) *FallbackChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackChannel{primary: primary, secondary: secondary, logger: logger}
}

// Name lists both channels in order.
func (f *FallbackChannel) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Send tries the primary channel, then the secondary for the same batch.
func (f *FallbackChannel) Send(ctx context.Context, recipients []string, subject, renderedBody string) error {
	primaryErr := f.primary.Send(ctx, recipients, subject, renderedBody)
	if primaryErr == nil {
		return nil
	}
	f.logger.Warn("primary channel failed, falling back",
		"primary", f.primary.Name(), "secondary", f.secondary.Name(), "error", primaryErr)

	if err := f.secondary.Send(ctx, recipients, subject, renderedBody); err != nil {
		return errors.Join(primaryErr, err)
	}
	return nil
}

// NewChannel orders the configured channels by provider preference: google
// tries SMTP first, resend tries the API first. Unconfigured channels are left
// out; nil is returned when neither is usable.
func NewChannel(cfg config.DeliveryConfig, client *httpclient.Client, logger *slog.Logger) ports.DeliveryChannel {
	var smtp, resend ports.DeliveryChannel
	if cfg.SMTP.Configured() {
		smtp = NewSMTPChannel(cfg.SMTP, cfg.SenderName)
	}
	if cfg.Resend.APIKey != "" {
		resend = NewResendChannel(client, cfg.Resend.Endpoint, cfg.Resend.APIKey, senderAddress(cfg))
	}

	ordered := []ports.DeliveryChannel{smtp, resend}
	if cfg.Provider == config.ProviderResend {
		ordered = []ports.DeliveryChannel{resend, smtp}
	}

	var usable []ports.DeliveryChannel
	for _, ch := range ordered {
		if ch != nil {
			usable = append(usable, ch)
		}
	}

	switch len(usable) {
	case 0:
		return nil
	case 1:
		return usable[0]
	default:
		return NewFallbackChannel(usable[0], usable[1], logger)
	}
}

func senderAddress(cfg config.DeliveryConfig) string {
	addr := cfg.SenderAddress
	if addr == "" {
		addr = cfg.SMTP.Username
	}
	if addr == "" {
		addr = defaultSender
	}
	if cfg.SenderName == "" {
		return addr
	}
	return cfg.SenderName + " <" + addr + ">"
}
