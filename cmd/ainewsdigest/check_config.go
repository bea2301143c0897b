package main

import (
	"fmt"
	"io"
	"strings"

	"AINewsDigest/internal/config"
)

// mask keeps the first eight and last four characters of long secrets.
func mask(secret string) string {
	if len(secret) > 12 {
		return secret[:8] + "..." + secret[len(secret)-4:]
	}
	return "***"
}

func presence(name, value string, secret bool) string {
	switch {
	case strings.TrimSpace(value) == "":
		return fmt.Sprintf("  [missing] %s", name)
	case secret:
		return fmt.Sprintf("  [ok]      %s (%s)", name, mask(value))
	default:
		return fmt.Sprintf("  [ok]      %s: %s", name, value)
	}
}

func writeConfigReport(w io.Writer, cfg config.Config) {
	d := cfg.Delivery
	lines := []string{
		"Email provider: " + d.Provider,
		presence("RESEND_API_KEY", d.Resend.APIKey, true),
		presence("EMAIL_USER", d.SMTP.Username, false),
		presence("EMAIL_PASSWORD", d.SMTP.Password, true),
		presence("SMTP_SERVER", d.SMTP.Host, false),
		fmt.Sprintf("  Channel order: %s", channelOrder(cfg)),
		"",
		"Discussion access:",
		presence("REDDIT_CLIENT_ID", cfg.Sources.Discussion.ClientID, true),
		presence("REDDIT_CLIENT_SECRET", cfg.Sources.Discussion.ClientSecret, true),
		fmt.Sprintf("  Strategy: %s", discussionStrategy(cfg)),
		"",
		fmt.Sprintf("Papers strategy: %s (%d categories)", cfg.Sources.Papers.Strategy, len(cfg.Sources.Papers.Categories)),
		fmt.Sprintf("News feeds: %d", len(cfg.Sources.News.Feeds)),
		fmt.Sprintf("Recipients: list %q, registered subscribers included: %t", cfg.Recipients.ActiveList, cfg.Recipients.IncludeRegistered),
		fmt.Sprintf("Schedule: %q (%s)", cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
		fmt.Sprintf("Telegram summaries: %t", cfg.Notifications.Telegram.Enabled()),
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func discussionStrategy(cfg config.Config) string {
	if cfg.Sources.Discussion.HasCredentials() {
		return "oauth"
	}
	return "public (no credentials)"
}

func channelOrder(cfg config.Config) string {
	d := cfg.Delivery
	var smtp, resend string
	if d.SMTP.Configured() {
		smtp = "smtp"
	}
	if d.Resend.APIKey != "" {
		resend = "resend"
	}
	order := []string{smtp, resend}
	if d.Provider == config.ProviderResend {
		order = []string{resend, smtp}
	}

	var usable []string
	for _, name := range order {
		if name != "" {
			usable = append(usable, name)
		}
	}
	if len(usable) == 0 {
		return "none"
	}
	return strings.Join(usable, " -> ")
}
