package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/logging"
)

func TestResendChannelPostsBatch(t *testing.T) {
	t.Parallel()

	var got resendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	ch := NewResendChannel(httpclient.New(server.Client(), httpclient.Options{}), server.URL, "re_test", "Digest <d@example.com>")
	err := ch.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Hello", "<p>hi</p>")
	require.NoError(t, err)

	assert.Equal(t, "Digest <d@example.com>", got.From)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.To)
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, "<p>hi</p>", got.HTML)
}

func TestResendChannelErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()
	client := httpclient.New(server.Client(), httpclient.Options{})

	err := NewResendChannel(client, server.URL, "re_test", "x@example.com").Send(context.Background(), []string{"a@example.com"}, "s", "b")
	require.Error(t, err)
	var status *httpclient.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusUnprocessableEntity, status.Status)

	err = NewResendChannel(client, server.URL, "", "x@example.com").Send(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorIs(t, err, errNotConfigured)
}

func smtpConfig() config.SMTPConfig {
	return config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "sender@example.com", Password: "secret"}
}

func TestSMTPChannelBuildsBccMessage(t *testing.T) {
	t.Parallel()

	ch := NewSMTPChannel(smtpConfig(), "AI Digest")
	var sent *mail.Msg
	ch.dial = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, ch.Send(context.Background(), []string{"a@example.com", "b@example.com"}, "Daily", "<p>x</p>"))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"<a@example.com>", "<b@example.com>"}, sent.GetBccString())
	assert.Equal(t, []string{"Daily"}, sent.GetGenHeader(mail.HeaderSubject))
	require.Len(t, sent.GetFromString(), 1)
	assert.Contains(t, sent.GetFromString()[0], "AI Digest")
	assert.Contains(t, sent.GetFromString()[0], "sender@example.com")
}

func TestSMTPChannelRequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := smtpConfig()
	cfg.Password = ""
	err := NewSMTPChannel(cfg, "AI Digest").Send(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorIs(t, err, errNotConfigured)

	ch := NewSMTPChannel(smtpConfig(), "AI Digest")
	ch.dial = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }
	err = ch.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorContains(t, err, "connection refused")

	err = ch.Send(context.Background(), []string{"not an address"}, "s", "b")
	assert.Error(t, err)
}

type stubChannel struct {
	name  string
	err   error
	calls int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(context.Context, []string, string, string) error {
	s.calls++
	return s.err
}

func TestFallbackChannel(t *testing.T) {
	t.Parallel()

	primary := &stubChannel{name: "smtp"}
	secondary := &stubChannel{name: "resend"}
	ch := NewFallbackChannel(primary, secondary, logging.Discard())
	assert.Equal(t, "smtp+resend", ch.Name())

	require.NoError(t, ch.Send(context.Background(), []string{"a@example.com"}, "s", "b"))
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)

	primary.err = errors.New("auth failed")
	require.NoError(t, ch.Send(context.Background(), []string{"a@example.com"}, "s", "b"))
	assert.Equal(t, 1, secondary.calls)

	secondary.err = errors.New("rate limited")
	err := ch.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	require.Error(t, err)
	assert.ErrorContains(t, err, "auth failed")
	assert.ErrorContains(t, err, "rate limited")
}

func TestNewChannelOrdersByProvider(t *testing.T) {
	t.Parallel()

	client := httpclient.New(nil, httpclient.Options{})
	cfg := config.Default().Delivery

	assert.Nil(t, NewChannel(cfg, client, logging.Discard()))

	cfg.Resend.APIKey = "re_key"
	assert.Equal(t, "resend", NewChannel(cfg, client, logging.Discard()).Name())

	cfg.SMTP = smtpConfig()
	assert.Equal(t, "smtp+resend", NewChannel(cfg, client, logging.Discard()).Name())

	cfg.Provider = config.ProviderResend
	assert.Equal(t, "resend+smtp", NewChannel(cfg, client, logging.Discard()).Name())

	cfg.Resend.APIKey = ""
	assert.Equal(t, "smtp", NewChannel(cfg, client, logging.Discard()).Name())
}

func TestSenderAddress(t *testing.T) {
	t.Parallel()

	cfg := config.DeliveryConfig{SenderName: "AI Digest"}
	assert.Equal(t, "AI Digest <onboarding@resend.dev>", senderAddress(cfg))

	cfg.SMTP.Username = "me@example.com"
	assert.Equal(t, "AI Digest <me@example.com>", senderAddress(cfg))

	cfg.SenderAddress = "digest@example.com"
	cfg.SenderName = ""
	assert.Equal(t, "digest@example.com", senderAddress(cfg))
}
