// Package email provides the digest delivery channels.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/ports"
)

var errNotConfigured = errors.New("channel not configured")

// ResendChannel sends through the Resend HTTP API.
type ResendChannel struct {
	http     *httpclient.Client
	endpoint string
	apiKey   string
	from     string
}

var _ ports.DeliveryChannel = (*ResendChannel)(nil)

// NewResendChannel wires the API endpoint, key and formatted sender.
func NewResendChannel(client *httpclient.Client, endpoint, apiKey, from string) *ResendChannel {
	return &ResendChannel{http: client, endpoint: endpoint, apiKey: apiKey, from: from}
}

// Name identifies the channel.
func (r *ResendChannel) Name() string { return "resend" }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts one batch.
func (r *ResendChannel) Send(ctx context.Context, recipients []string, subject, renderedBody string) error {
	if r.apiKey == "" {
		return fmt.Errorf("resend: %w: missing api key", errNotConfigured)
	}

	payload, err := json.Marshal(resendRequest{
		From:    r.from,
		To:      recipients,
		Subject: subject,
		HTML:    renderedBody,
	})
	if err != nil {
		return fmt.Errorf("encode resend payload: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.apiKey)
	header.Set("Content-Type", "application/json")

	if _, err := r.http.Do(ctx, http.MethodPost, r.endpoint, header, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
