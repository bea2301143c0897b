package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/metrics"
	"AINewsDigest/internal/policy"
	"AINewsDigest/internal/ports"
	"AINewsDigest/internal/scanner"
)

// AggregatorDeps wires the fetchers and the optional dedup policy.
type AggregatorDeps struct {
	Registry *scanner.Registry
	Dedup    config.DedupConfig
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Aggregator runs every registered fetcher and merges their output by source type.
type Aggregator struct {
	registry *scanner.Registry
	dedup    config.DedupConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewAggregator constructs the aggregation component.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		registry: deps.Registry,
		dedup:    deps.Dedup,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// Run fetches all sources concurrently. The result always carries every source
// key; an empty source is logged, not returned as an error.
func (a *Aggregator) Run(ctx context.Context) (domain.AggregatedResult, error) {
	if a == nil || a.registry == nil || a.registry.Len() == 0 {
		return nil, fmt.Errorf("%w: no fetchers registered", domain.ErrAggregationFailure)
	}

	fetchers := a.registry.All()
	outputs := make([][]domain.ContentItem, len(fetchers))

	var g errgroup.Group
	for i, fetcher := range fetchers {
		i, fetcher := i, fetcher
		g.Go(func() error {
			outputs[i] = a.fetch(ctx, fetcher)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregationFailure, err)
	}

	result := domain.NewAggregatedResult()
	for i, fetcher := range fetchers {
		if items := outputs[i]; items != nil {
			result[fetcher.Source()] = items
		}
	}

	if a.dedup.Enabled {
		var removed int
		result, removed = policy.Deduplicate(result, a.dedup.Threshold)
		a.logger.Info("cross-source duplicates removed", "removed", removed)
	}

	for _, st := range domain.SourceTypes() {
		n := len(result[st])
		a.metrics.ObserveItems(st, n)
		if n == 0 {
			a.logger.Warn("source returned no items", "source", st)
		}
	}
	a.logger.Info("aggregation done",
		"discussion", len(result[domain.SourceDiscussion]),
		"paper", len(result[domain.SourcePaper]),
		"news", len(result[domain.SourceNews]))
	return result, nil
}

// fetch isolates a single fetcher; a panic is logged and yields no items.
func (a *Aggregator) fetch(ctx context.Context, fetcher ports.Fetcher) (items []domain.ContentItem) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("fetcher panicked", "source", fetcher.Source(), "panic", r)
			items = nil
		}
	}()
	return fetcher.Fetch(ctx)
}
