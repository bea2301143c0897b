package arxiv

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

const maxAuthors = 3

// Deps carries the fetcher's read-only collaborators.
type Deps struct {
	Config  config.PapersConfig
	Tags    policy.Keywords
	HTTP    *httpclient.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Fetcher keeps the newest preprints of each category inside the recency window.
type Fetcher struct {
	strategy   Strategy
	categories []string
	window     policy.Window
	maxItems   int
	maxResults int
	tags       policy.Keywords
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher selects the strategy named in configuration.
func NewFetcher(deps Deps) *Fetcher {
	var strategy Strategy
	switch deps.Config.Strategy {
	case config.PaperStrategyList:
		strategy = NewListingStrategy(deps.HTTP, deps.Config.ListingURL)
	default:
		strategy = NewAPIStrategy(deps.HTTP, deps.Config.Endpoint)
	}
	return NewFetcherWithStrategy(strategy, deps)
}

// NewFetcherWithStrategy wires an explicit strategy.
func NewFetcherWithStrategy(strategy Strategy, deps Deps) *Fetcher {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := deps.Config.MaxResults
	if maxResults <= 0 {
		maxResults = 30
	}
	return &Fetcher{
		strategy:   strategy,
		categories: deps.Config.Categories,
		window:     policy.Window{Length: deps.Config.Window},
		maxItems:   deps.Config.MaxItems,
		maxResults: maxResults,
		tags:       deps.Tags,
		now:        now,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Source reports the paper source type.
func (f *Fetcher) Source() domain.SourceType { return domain.SourcePaper }

// Strategy names the access path.
func (f *Fetcher) Strategy() string { return f.strategy.Name() }

// Fetch walks every category; a failing category is logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context) []domain.ContentItem {
	now := f.now()
	seen := map[string]struct{}{}
	results := make([]domain.ContentItem, 0)

	for _, category := range f.categories {
		if ctx.Err() != nil {
			f.logger.Warn("fetch cancelled", "error", ctx.Err())
			break
		}

		entries, err := f.strategy.Recent(ctx, category, f.maxResults)
		if err != nil {
			f.metrics.OriginFailed(domain.SourcePaper)
			f.logger.Warn("category skipped", "origin", category,
				"error", fmt.Errorf("%w: %w", domain.ErrOriginUnavailable, err))
			continue
		}

		kept := 0
		for _, entry := range entries {
			if !f.window.Contains(entry.PublishedAt, now) {
				continue
			}
			if entry.ID != "" {
				if _, dup := seen[entry.ID]; dup {
					continue
				}
				seen[entry.ID] = struct{}{}
			}
			results = append(results, f.toItem(entry, category))
			kept++
		}
		f.logger.Debug("category processed", "origin", category, "entries", len(entries), "kept", kept)
	}

	policy.SortByRecency(results)
	results = policy.Truncate(results, f.maxItems)
	f.logger.Info("paper fetch done", "strategy", f.strategy.Name(), "items", len(results))
	return results
}

func (f *Fetcher) toItem(entry Entry, category string) domain.ContentItem {
	authors := entry.Authors
	if len(authors) > maxAuthors {
		authors = authors[:maxAuthors]
	}
	categories := entry.Categories
	if len(categories) == 0 {
		categories = []string{category}
	}

	item := domain.NewContentItem(domain.SourcePaper)
	item.ID = entry.ID
	item.Title = entry.Title
	item.Body = entry.Abstract
	item.URL = entry.URL
	item.SourceLabel = "arXiv/" + category
	item.PublishedAt = entry.PublishedAt
	item.Tags = f.tags.Extract(entry.Title + " " + entry.Abstract)
	item.IsTrending = true
	item.Authors = append([]string(nil), authors...)
	item.Categories = append([]string(nil), categories...)
	return item
}
