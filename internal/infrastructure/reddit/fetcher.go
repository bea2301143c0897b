// Package reddit implements the discussion-platform fetcher.
package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/metrics"
	"AINewsDigest/internal/policy"
	"AINewsDigest/internal/ports"
)

const emptyBodyPrefix = "Discussion: "

// Deps carries everything the fetcher reads; nothing here is mutated.
type Deps struct {
	Config       config.DiscussionConfig
	Significance policy.Keywords
	Tags         policy.Keywords
	HTTP         *httpclient.Client
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Fetcher keeps recent, trending, significant posts from the configured communities.
type Fetcher struct {
	strategy         Lister
	origins          []config.OriginConfig
	window           policy.Window
	maxItems         int
	hotLimit         int
	commentsTrending int
	significance     policy.Keywords
	tags             policy.Keywords
	now              func() time.Time
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher picks the OAuth strategy when credentials are present, falling
// back to the public listing if they are refused, and the public listing otherwise.
func NewFetcher(deps Deps) *Fetcher {
	cfg := deps.Config
	f := NewFetcherWithLister(nil, deps)
	public := NewPublicLister(deps.HTTP, cfg.BaseURL)
	if cfg.HasCredentials() {
		oauth := NewOAuthLister(deps.HTTP, cfg.OAuthURL, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret)
		f.strategy = NewFallbackLister(oauth, public, f.logger)
		return f
	}
	f.strategy = public
	f.logger.Warn("discussion credentials absent, using public listing",
		"error", domain.ErrFetcherDegraded, "strategy", public.Name())
	return f
}

// NewFetcherWithLister wires an explicit access strategy.
func NewFetcherWithLister(lister Lister, deps Deps) *Fetcher {
	cfg := deps.Config
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hotLimit := cfg.HotLimit
	if hotLimit <= 0 {
		hotLimit = 25
	}
	return &Fetcher{
		strategy:         lister,
		origins:          cfg.Origins,
		window:           policy.Window{Length: cfg.Window},
		maxItems:         cfg.MaxItems,
		hotLimit:         hotLimit,
		commentsTrending: cfg.CommentsTrending,
		significance:     deps.Significance,
		tags:             deps.Tags,
		now:              now,
		logger:           logger,
		metrics:          deps.Metrics,
	}
}

// Source reports the discussion source type.
func (f *Fetcher) Source() domain.SourceType { return domain.SourceDiscussion }

// Strategy names the access path chosen at construction.
func (f *Fetcher) Strategy() string { return f.strategy.Name() }

// Fetch walks every community; a failing community is logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context) []domain.ContentItem {
	now := f.now()
	results := make([]domain.ContentItem, 0)
	if r, ok := f.strategy.(interface{ Reset() }); ok {
		r.Reset()
	}

	for _, origin := range f.origins {
		if ctx.Err() != nil {
			f.logger.Warn("fetch cancelled", "error", ctx.Err())
			break
		}

		posts, err := f.strategy.Hot(ctx, origin.Name, f.hotLimit)
		if err != nil {
			f.metrics.OriginFailed(domain.SourceDiscussion)
			f.logger.Warn("origin skipped", "origin", "r/"+origin.Name,
				"error", fmt.Errorf("%w: %w", domain.ErrOriginUnavailable, err))
			continue
		}

		kept := 0
		for _, post := range posts {
			item, ok := f.evaluate(post, origin, now)
			if !ok {
				continue
			}
			results = append(results, item)
			kept++
		}
		f.logger.Debug("origin processed", "origin", "r/"+origin.Name, "posts", len(posts), "kept", kept)
	}

	policy.SortByEngagement(results)
	results = policy.Truncate(results, f.maxItems)
	f.logger.Info("discussion fetch done", "strategy", f.strategy.Name(), "items", len(results))
	return results
}

// evaluate normalizes a post and applies window, trending and significance rules.
func (f *Fetcher) evaluate(post Post, origin config.OriginConfig, now time.Time) (domain.ContentItem, bool) {
	published, ok := policy.FromUnix(post.CreatedUTC)
	if !ok || !f.window.Contains(published, now) {
		return domain.ContentItem{}, false
	}

	engagement := policy.Engagement(post.Score, post.NumComments)
	trending := engagement > origin.MinEngagement || post.NumComments > f.commentsTrending
	if !trending {
		return domain.ContentItem{}, false
	}
	if !f.significance.Matches(post.Title, post.SelfText) {
		return domain.ContentItem{}, false
	}

	body := post.SelfText
	if body == "" {
		body = emptyBodyPrefix + post.Title
	}
	community := post.Subreddit
	if community == "" {
		community = origin.Name
	}

	item := domain.NewContentItem(domain.SourceDiscussion)
	item.ID = postID(post)
	item.Title = post.Title
	item.Body = body
	item.URL = permalinkURL(post)
	item.SourceLabel = "r/" + community
	item.PublishedAt = published
	item.Tags = f.tags.Extract(post.Title + " " + post.SelfText)
	item.IsTrending = true
	item.Score = post.Score
	item.CommentCount = post.NumComments
	item.Engagement = engagement
	item.Author = post.Author
	return item, true
}
