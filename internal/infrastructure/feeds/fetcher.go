// Package feeds implements the news fetcher over RSS and Atom syndication feeds.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/metrics"
	"AINewsDigest/internal/policy"
	"AINewsDigest/internal/ports"
)

const (
	summaryLimit = 400
	httpPrefix   = "http"
)

// Deps carries the fetcher's read-only collaborators.
type Deps struct {
	Config  config.NewsConfig
	Tags    policy.Keywords
	HTTP    *httpclient.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Fetcher keeps the newest entries of every configured feed.
type Fetcher struct {
	http     *httpclient.Client
	feeds    []config.FeedConfig
	window   policy.Window
	maxItems int
	tags     policy.Keywords
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher wires the news fetcher.
func NewFetcher(deps Deps) *Fetcher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		http:     deps.HTTP,
		feeds:    deps.Config.Feeds,
		window:   policy.Window{Length: deps.Config.Window},
		maxItems: deps.Config.MaxItems,
		tags:     deps.Tags,
		now:      now,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// Source reports the news source type.
func (f *Fetcher) Source() domain.SourceType { return domain.SourceNews }

// Fetch reads every feed; a failing feed is logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context) []domain.ContentItem {
	now := f.now()
	results := make([]domain.ContentItem, 0)

	for _, feed := range f.feeds {
		if ctx.Err() != nil {
			f.logger.Warn("fetch cancelled", "error", ctx.Err())
			break
		}

		parsed, err := f.read(ctx, feed.URL)
		if err != nil {
			f.metrics.OriginFailed(domain.SourceNews)
			f.logger.Warn("feed skipped", "origin", feed.Name,
				"error", fmt.Errorf("%w: %w", domain.ErrOriginUnavailable, err))
			continue
		}

		kept := 0
		for _, entry := range parsed.Items {
			item, ok := f.evaluate(entry, feed, now)
			if !ok {
				continue
			}
			results = append(results, item)
			kept++
		}
		f.logger.Debug("feed processed", "origin", feed.Name, "entries", len(parsed.Items), "kept", kept)
	}

	policy.SortByRecency(results)
	results = policy.Truncate(results, f.maxItems)
	f.logger.Info("news fetch done", "items", len(results))
	return results
}

func (f *Fetcher) read(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := f.http.Get(ctx, feedURL, nil)
	if err != nil {
		return nil, err
	}
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

func (f *Fetcher) evaluate(entry *gofeed.Item, feed config.FeedConfig, now time.Time) (domain.ContentItem, bool) {
	if entry == nil {
		return domain.ContentItem{}, false
	}
	published := publishedAt(entry)
	if published.IsZero() || !f.window.Contains(published, now) {
		return domain.ContentItem{}, false
	}
	link := extractLink(entry)
	if link == "" {
		return domain.ContentItem{}, false
	}

	title := policy.CleanText(entry.Title)
	summary := policy.CleanText(entry.Description)
	if summary == "" {
		summary = policy.CleanText(entry.Content)
	}
	summary = policy.TruncateRunes(summary, summaryLimit)

	item := domain.NewContentItem(domain.SourceNews)
	item.ID = firstNonEmpty(entry.GUID, link)
	item.Title = title
	item.Body = summary
	item.URL = link
	item.SourceLabel = feed.Name
	item.Category = feed.Category
	item.PublishedAt = published
	item.Tags = f.tags.Extract(title + " " + summary)
	item.IsTrending = true
	if entry.Author != nil {
		item.Author = entry.Author.Name
	}
	return item, true
}

// publishedAt prefers the publish date and falls back to the update date.
// Raw strings the feed parser could not read get one more attempt.
func publishedAt(entry *gofeed.Item) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.UTC()
	}
	for _, raw := range []string{entry.Published, entry.Updated} {
		if t, ok := policy.ParseTime(strings.TrimSpace(raw)); ok {
			return t
		}
	}
	return time.Time{}
}

func extractLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, httpPrefix) {
		return entry.GUID
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
