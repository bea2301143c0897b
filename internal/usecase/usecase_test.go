package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/logging"
	"AINewsDigest/internal/metrics"
	"AINewsDigest/internal/scanner"
)

func newAggregator(dedup config.DedupConfig, fetchers ...*fakeFetcher) *Aggregator {
	registry := scanner.NewRegistry()
	for _, f := range fetchers {
		registry.Register(f)
	}
	return NewAggregator(AggregatorDeps{
		Registry: registry,
		Dedup:    dedup,
		Logger:   logging.Discard(),
		Metrics:  metrics.New(),
	})
}

func TestAggregatorReturnsAllKeysWhenEverySourceIsEmpty(t *testing.T) {
	t.Parallel()

	agg := newAggregator(config.DedupConfig{},
		&fakeFetcher{source: domain.SourceDiscussion},
		&fakeFetcher{source: domain.SourcePaper},
		&fakeFetcher{source: domain.SourceNews},
	)

	result, err := agg.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 3)
	for _, st := range domain.SourceTypes() {
		items, ok := result[st]
		assert.True(t, ok, "missing key %s", st)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestAggregatorMergesByKeyRegardlessOfCompletionOrder(t *testing.T) {
	t.Parallel()

	discussions := makeItems(domain.SourceDiscussion, "d", 3)
	papers := makeItems(domain.SourcePaper, "p", 2)
	news := makeItems(domain.SourceNews, "n", 4)

	agg := newAggregator(config.DedupConfig{},
		&fakeFetcher{source: domain.SourceDiscussion, items: discussions, delay: 30 * time.Millisecond},
		&fakeFetcher{source: domain.SourcePaper, items: papers},
		&fakeFetcher{source: domain.SourceNews, items: news, delay: 10 * time.Millisecond},
	)

	result, err := agg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, discussions, result[domain.SourceDiscussion])
	assert.Equal(t, papers, result[domain.SourcePaper])
	assert.Equal(t, news, result[domain.SourceNews])
	assert.Equal(t, 9, result.Total())
}

func TestAggregatorToleratesMissingAndPanickingFetchers(t *testing.T) {
	t.Parallel()

	papers := makeItems(domain.SourcePaper, "p", 2)
	agg := newAggregator(config.DedupConfig{},
		&fakeFetcher{source: domain.SourcePaper, items: papers},
		&fakeFetcher{source: domain.SourceNews, panics: true},
	)

	result, err := agg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, papers, result[domain.SourcePaper])
	assert.Empty(t, result[domain.SourceNews])
	assert.Empty(t, result[domain.SourceDiscussion])
}

func TestAggregatorWithoutFetchersIsFatal(t *testing.T) {
	t.Parallel()

	_, err := newAggregator(config.DedupConfig{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAggregationFailure))
	assert.True(t, IsFatal(err))

	var nilAgg *Aggregator
	_, err = nilAgg.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrAggregationFailure)
}

func TestAggregatorAppliesOptionalDedup(t *testing.T) {
	t.Parallel()

	paper := domain.NewContentItem(domain.SourcePaper)
	paper.Title = "Scaling laws for sparse attention models"
	news := domain.NewContentItem(domain.SourceNews)
	news.Title = "Scaling laws for sparse attention models"
	other := domain.NewContentItem(domain.SourceNews)
	other.Title = "Robot hands learn to juggle"

	fetchers := func() []*fakeFetcher {
		return []*fakeFetcher{
			{source: domain.SourcePaper, items: []domain.ContentItem{paper}},
			{source: domain.SourceNews, items: []domain.ContentItem{news, other}},
		}
	}

	off, err := newAggregator(config.DedupConfig{}, fetchers()...).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, off[domain.SourceNews], 2)

	on, err := newAggregator(config.DedupConfig{Enabled: true, Threshold: 0.7}, fetchers()...).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, on[domain.SourceNews], 1)
	assert.Equal(t, "Robot hands learn to juggle", on[domain.SourceNews][0].Title)
	assert.Len(t, on[domain.SourcePaper], 1)
}

func TestAssemblePreservesOrderAndContent(t *testing.T) {
	t.Parallel()

	result := domain.NewAggregatedResult()
	result[domain.SourceDiscussion] = makeItems(domain.SourceDiscussion, "d", 5)
	result[domain.SourcePaper] = makeItems(domain.SourcePaper, "p", 3)
	result[domain.SourceNews] = makeItems(domain.SourceNews, "n", 2)

	payload := Assemble(result, cycleTime)
	assert.Equal(t, result[domain.SourceDiscussion], payload.Discussions())
	assert.Equal(t, result[domain.SourcePaper], payload.Papers())
	assert.Equal(t, result[domain.SourceNews], payload.News())
	assert.Equal(t, cycleTime, payload.GeneratedAt())

	result[domain.SourcePaper][0].Title = "mutated"
	assert.NotEqual(t, "mutated", payload.Papers()[0].Title)
}

func TestBatches(t *testing.T) {
	t.Parallel()

	batches := Batches(addresses(120), 50)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)

	assert.Len(t, Batches(addresses(10), 0), 1)
	assert.Empty(t, Batches(nil, 50))
}

func TestDeliverContinuesPastFailedBatches(t *testing.T) {
	t.Parallel()

	channel := &fakeChannel{failOn: map[int]bool{1: true}}
	report := Deliver(context.Background(), channel, addresses(120), "subject", "body", 50, logging.Discard())

	assert.Equal(t, 3, report.Attempts())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 70, report.Delivered())
	assert.True(t, report.Sent())
	require.Error(t, report.Err())
	assert.ErrorIs(t, report.Err(), domain.ErrDeliveryBatch)
	assert.Len(t, channel.batches, 3)
}

func TestResolveRecipientsMergesAndDeduplicates(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{
		groups: map[string][]string{"team": {"a@example.com", "B@example.com", " a@example.com"}},
		registered: []domain.Recipient{
			{Address: "b@example.com"},
			{Address: "c@example.com", Name: "C"},
		},
	}
	cfg := config.RecipientsConfig{ActiveList: "team", Frequency: "daily"}

	assert.Equal(t, []string{"a@example.com", "B@example.com"},
		ResolveRecipients(context.Background(), dir, cfg, logging.Discard()))

	cfg.IncludeRegistered = true
	assert.Equal(t, []string{"a@example.com", "B@example.com", "c@example.com"},
		ResolveRecipients(context.Background(), dir, cfg, logging.Discard()))
	assert.Equal(t, "daily", dir.frequency)

	dir.groupErr = errors.New("db down")
	assert.Equal(t, []string{"b@example.com", "c@example.com"},
		ResolveRecipients(context.Background(), dir, cfg, logging.Discard()))
}

func newPipeline(agg *Aggregator, channel *fakeChannel, dir *fakeDirectory, renderer *fakeRenderer, runs *fakeRuns, notifier *fakeNotifier) *Pipeline {
	deps := PipelineDeps{
		Aggregator: agg,
		Renderer:   renderer,
		Directory:  dir,
		Runs:       runs,
		Recipients: config.RecipientsConfig{ActiveList: "main"},
		Delivery:   config.DeliveryConfig{BatchSize: 50, Subject: "Daily AI Digest"},
		Logger:     logging.Discard(),
		Now:        func() time.Time { return cycleTime },
	}
	if channel != nil {
		deps.Channel = channel
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return NewPipeline(deps)
}

func TestRunDigestCycleDeliversAndRecords(t *testing.T) {
	t.Parallel()

	agg := newAggregator(config.DedupConfig{},
		&fakeFetcher{source: domain.SourceDiscussion, items: makeItems(domain.SourceDiscussion, "d", 2)},
		&fakeFetcher{source: domain.SourcePaper, items: makeItems(domain.SourcePaper, "p", 1)},
		&fakeFetcher{source: domain.SourceNews},
	)
	channel := &fakeChannel{failOn: map[int]bool{0: true}}
	dir := &fakeDirectory{groups: map[string][]string{"main": addresses(60)}}
	runs := &fakeRuns{}
	notifier := &fakeNotifier{}

	payload, report, err := newPipeline(agg, channel, dir, &fakeRenderer{}, runs, notifier).RunDigestCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Total())
	assert.Equal(t, 2, report.Attempts())
	assert.Equal(t, "Daily AI Digest - March 10, 2025", channel.subject)
	assert.Equal(t, "<html>3 items</html>", channel.body)

	require.Len(t, runs.records, 1)
	rec := runs.records[0]
	assert.Equal(t, domain.RunPartial, rec.Status)
	assert.Equal(t, 60, rec.RecipientsCount)
	assert.Equal(t, 1, rec.FailedBatches)
	assert.True(t, rec.EmailSent)
	assert.Equal(t, 2, rec.Counts[domain.SourceDiscussion])
	assert.Contains(t, rec.ErrorMessage, "provider rejected batch")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Discussions: 2")
	assert.Contains(t, notifier.messages[0], "Failed batches: 1")
}

func TestRunDigestCycleSkipsDeliveryWithoutRecipients(t *testing.T) {
	t.Parallel()

	agg := newAggregator(config.DedupConfig{}, &fakeFetcher{source: domain.SourceNews})
	channel := &fakeChannel{}
	runs := &fakeRuns{}

	payload, report, err := newPipeline(agg, channel, &fakeDirectory{}, &fakeRenderer{}, runs, nil).RunDigestCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, payload.Empty())
	assert.Zero(t, report.Attempts())
	assert.Empty(t, channel.batches)
	require.Len(t, runs.records, 1)
	assert.Equal(t, domain.RunSkipped, runs.records[0].Status)
}

func TestRunDigestCycleAbsorbsRenderAndHistoryFailures(t *testing.T) {
	t.Parallel()

	agg := newAggregator(config.DedupConfig{}, &fakeFetcher{source: domain.SourceNews, items: makeItems(domain.SourceNews, "n", 1)})
	channel := &fakeChannel{}
	runs := &fakeRuns{err: errors.New("disk full")}
	renderer := &fakeRenderer{err: errors.New("template broken")}

	_, report, err := newPipeline(agg, channel, &fakeDirectory{groups: map[string][]string{"main": addresses(2)}}, renderer, runs, nil).
		RunDigestCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempts())
	require.Len(t, runs.records, 1)
	assert.Equal(t, domain.RunFailed, runs.records[0].Status)
	assert.Equal(t, "template broken", runs.records[0].ErrorMessage)
}

func TestRunDigestCyclePropagatesAggregationFailure(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	_, _, err := newPipeline(newAggregator(config.DedupConfig{}), &fakeChannel{}, &fakeDirectory{}, &fakeRenderer{}, runs, nil).
		RunDigestCycle(context.Background())
	require.ErrorIs(t, err, domain.ErrAggregationFailure)
	require.Len(t, runs.records, 1)
	assert.Equal(t, domain.RunFailed, runs.records[0].Status)
}

func TestPreviewDoesNotDeliver(t *testing.T) {
	t.Parallel()

	agg := newAggregator(config.DedupConfig{}, &fakeFetcher{source: domain.SourcePaper, items: makeItems(domain.SourcePaper, "p", 4)})
	channel := &fakeChannel{}
	runs := &fakeRuns{}

	payload, body, err := newPipeline(agg, channel, &fakeDirectory{}, &fakeRenderer{}, runs, nil).Preview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, payload.Total())
	assert.True(t, strings.Contains(body, "4 items"))
	assert.Empty(t, channel.batches)
	assert.Empty(t, runs.records)
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) RunDigestCycle(context.Context) (domain.DigestPayload, domain.DeliveryReport, error) {
	close(b.started)
	<-b.release
	return domain.DigestPayload{}, domain.DeliveryReport{}, nil
}

func TestTriggerRejectsOverlappingRuns(t *testing.T) {
	t.Parallel()

	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	trigger := NewTrigger(runner)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, err := trigger.Fire(context.Background())
		assert.NoError(t, err)
	}()

	<-runner.started
	assert.True(t, trigger.Running())
	_, _, err := trigger.Fire(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(runner.release)
	wg.Wait()
	assert.False(t, trigger.Running())
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type countingRunner struct {
	calls int
	err   error
}

func (c *countingRunner) RunDigestCycle(context.Context) (domain.DigestPayload, domain.DeliveryReport, error) {
	c.calls++
	return domain.DigestPayload{}, domain.DeliveryReport{}, c.err
}

func TestSchedulerFiresTrigger(t *testing.T) {
	t.Parallel()

	driver := &manualDriver{}
	runner := &countingRunner{}
	sched := NewScheduler(driver, NewTrigger(runner), logging.Discard())

	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(cycleTime)
	driver.job(cycleTime.Add(24 * time.Hour))
	assert.Equal(t, 2, runner.calls)

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFatal(fmt.Errorf("run: %w", domain.ErrAggregationFailure)))
	assert.False(t, IsFatal(domain.ErrRunInProgress))
	assert.False(t, IsFatal(nil))
}

func TestSchedulerLogsOnlyFatalCyclesAsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	driver := &manualDriver{}
	runner := &countingRunner{err: errors.New("render exploded")}
	sched := NewScheduler(driver, NewTrigger(runner), logging.NewWithWriter(&buf, "debug", "text"))
	require.NoError(t, sched.Start(context.Background()))

	driver.job(cycleTime)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.NotContains(t, buf.String(), "level=ERROR")

	runner.err = fmt.Errorf("%w: no fetchers", domain.ErrAggregationFailure)
	driver.job(cycleTime)
	assert.Contains(t, buf.String(), "level=ERROR")
}
