// Package httpclient is the paced, time-bounded HTTP getter shared by fetchers.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 5 << 20

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// RateLimited reports whether the upstream asked us to back off.
func (e *StatusError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// Client waits on a limiter before each request and bounds each request by a timeout.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	timeout   time.Duration
}

// Options tune a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// New wires an HTTP client; a nil client gets a tuned transport.
func New(client *http.Client, opts Options) *Client {
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   5,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
		}}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "AINewsDigest/1.0"
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		http:      client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
	}
}

// Get fetches url and returns the (size-limited) body.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

// Do performs a request and reads the whole response within the client timeout.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := payload
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{URL: url, Status: resp.StatusCode, Body: string(snippet)}
	}
	return payload, nil
}
