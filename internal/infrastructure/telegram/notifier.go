// Package telegram posts run summaries to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	maxMessage     = 4096
)

// Notifier sends run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *httpclient.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(client *httpclient.Client, botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   client,
	}
}

// WithAPIBase points the notifier at another bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimSuffix(base, "/")
	return n
}

// PublishSummary posts a plain-text message to Telegram.
func (n *Notifier) PublishSummary(ctx context.Context, summary string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	if r := []rune(summary); len(r) > maxMessage {
		summary = string(r[:maxMessage])
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", summary)
	form.Set("disable_web_page_preview", "true")

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := n.client.Do(ctx, http.MethodPost, endpoint, header, strings.NewReader(form.Encode())); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}
