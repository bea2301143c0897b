package reddit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/infrastructure/httpclient"
)

var errTokenUnavailable = errors.New("access token unavailable")

// Post is the subset of a listing child the fetcher needs. Engagement
// fields that the upstream omits decode as zero.
type Post struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}

type listing struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Lister retrieves the "hot" posts of one community.
type Lister interface {
	Name() string
	Hot(ctx context.Context, community string, limit int) ([]Post, error)
}

// PublicLister reads the unauthenticated JSON listing.
type PublicLister struct {
	http    *httpclient.Client
	baseURL string
}

var _ Lister = (*PublicLister)(nil)

// NewPublicLister targets baseURL (e.g. https://www.reddit.com).
func NewPublicLister(client *httpclient.Client, baseURL string) *PublicLister {
	return &PublicLister{http: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Name identifies the strategy.
func (p *PublicLister) Name() string { return "public" }

// Hot returns up to limit hot posts.
func (p *PublicLister) Hot(ctx context.Context, community string, limit int) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%d&raw_json=1", p.baseURL, url.PathEscape(community), limit)
	body, err := p.http.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodeListing(body)
}

// OAuthLister uses application-only OAuth. Tokens are cached until shortly before expiry.
type OAuthLister struct {
	http         *httpclient.Client
	apiURL       string
	tokenURL     string
	clientID     string
	clientSecret string
	tokens       *cache.Cache
}

var _ Lister = (*OAuthLister)(nil)

const (
	tokenKey    = "access_token"
	tokenMargin = time.Minute
)

// NewOAuthLister wires credentials for the client-credentials grant.
func NewOAuthLister(client *httpclient.Client, apiURL, tokenURL, clientID, clientSecret string) *OAuthLister {
	return &OAuthLister{
		http:         client,
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		tokenURL:     tokenURL,
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		tokens:       cache.New(time.Hour, 10*time.Minute),
	}
}

// Name identifies the strategy.
func (o *OAuthLister) Name() string { return "oauth" }

// Hot returns up to limit hot posts through the authenticated API.
func (o *OAuthLister) Hot(ctx context.Context, community string, limit int) ([]Post, error) {
	token, err := o.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTokenUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/r/%s/hot?limit=%d&raw_json=1", o.apiURL, url.PathEscape(community), limit)
	body, err := o.http.Get(ctx, endpoint, http.Header{"Authorization": {"Bearer " + token}})
	if err != nil {
		return nil, err
	}
	return decodeListing(body)
}

func (o *OAuthLister) token(ctx context.Context) (string, error) {
	if cached, ok := o.tokens.Get(tokenKey); ok {
		return cached.(string), nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	credentials := base64.StdEncoding.EncodeToString([]byte(o.clientID + ":" + o.clientSecret))
	header := http.Header{
		"Authorization": {"Basic " + credentials},
		"Content-Type":  {"application/x-www-form-urlencoded"},
	}
	body, err := o.http.Do(ctx, http.MethodPost, o.tokenURL, header, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no token (%s)", resp.Error)
	}

	if ttl := tokenTTL(resp.ExpiresIn); ttl > 0 {
		o.tokens.Set(tokenKey, resp.AccessToken, ttl)
	}
	return resp.AccessToken, nil
}

// tokenTTL keeps a token until a minute before expiry, or for half its
// lifetime when that is shorter. Zero means do not cache.
func tokenTTL(expiresIn int) time.Duration {
	lifetime := time.Duration(expiresIn) * time.Second
	if ttl := lifetime - tokenMargin; ttl > 0 {
		return ttl
	}
	return lifetime / 2
}

// FallbackLister serves the primary strategy until upstream refuses it,
// then the fallback until Reset.
type FallbackLister struct {
	primary  Lister
	fallback Lister
	logger   *slog.Logger
	degraded atomic.Bool
}

var _ Lister = (*FallbackLister)(nil)

// NewFallbackLister pairs an authenticated strategy with its public fallback.
func NewFallbackLister(primary, fallback Lister, logger *slog.Logger) *FallbackLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackLister{primary: primary, fallback: fallback, logger: logger}
}

// Name reports the strategy currently in use.
func (l *FallbackLister) Name() string {
	if l.degraded.Load() {
		return l.fallback.Name()
	}
	return l.primary.Name()
}

// Reset returns to the primary strategy.
func (l *FallbackLister) Reset() { l.degraded.Store(false) }

// Hot uses the primary strategy unless it has been refused.
func (l *FallbackLister) Hot(ctx context.Context, community string, limit int) ([]Post, error) {
	if !l.degraded.Load() {
		posts, err := l.primary.Hot(ctx, community, limit)
		if err == nil || !refused(err) {
			return posts, err
		}
		l.degraded.Store(true)
		l.logger.Warn("authenticated access refused, switching strategy",
			"error", fmt.Errorf("%w: %w", domain.ErrFetcherDegraded, err),
			"from", l.primary.Name(), "to", l.fallback.Name())
	}
	return l.fallback.Hot(ctx, community, limit)
}

// refused reports failures the fallback path can route around.
func refused(err error) bool {
	if errors.Is(err, errTokenUnavailable) {
		return true
	}
	var status *httpclient.StatusError
	if errors.As(err, &status) {
		return status.Status == http.StatusUnauthorized || status.Status == http.StatusForbidden
	}
	return false
}

func decodeListing(body []byte) ([]Post, error) {
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func permalinkURL(p Post) string {
	if p.Permalink != "" {
		return "https://reddit.com" + p.Permalink
	}
	return p.URL
}

func postID(p Post) string {
	if p.Name != "" {
		return p.Name
	}
	if p.ID != "" {
		return "t3_" + p.ID
	}
	return strconv.Quote(p.Title)
}
