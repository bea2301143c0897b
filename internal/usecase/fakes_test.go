package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"AINewsDigest/internal/domain"
)

var cycleTime = time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	source domain.SourceType
	items  []domain.ContentItem
	delay  time.Duration
	panics bool
}

func (f *fakeFetcher) Source() domain.SourceType { return f.source }

func (f *fakeFetcher) Fetch(ctx context.Context) []domain.ContentItem {
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.items
}

func makeItems(source domain.SourceType, prefix string, n int) []domain.ContentItem {
	items := make([]domain.ContentItem, n)
	for i := 0; i < n; i++ {
		item := domain.NewContentItem(source)
		item.ID = fmt.Sprintf("%s-%02d", prefix, i)
		item.Title = fmt.Sprintf("%s story number %d", prefix, i)
		item.PublishedAt = cycleTime.Add(-time.Duration(i) * time.Minute)
		item.IsTrending = true
		items[i] = item
	}
	return items
}

type fakeChannel struct {
	mu      sync.Mutex
	batches [][]string
	failOn  map[int]bool
	subject string
	body    string
}

func (c *fakeChannel) Name() string { return "fake" }

func (c *fakeChannel) Send(_ context.Context, recipients []string, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.batches)
	c.batches = append(c.batches, append([]string(nil), recipients...))
	c.subject, c.body = subject, body
	if c.failOn[idx] {
		return errors.New("provider rejected batch")
	}
	return nil
}

type fakeDirectory struct {
	groups     map[string][]string
	registered []domain.Recipient
	groupErr   error
	regErr     error
	frequency  string
}

func (d *fakeDirectory) GetRecipients(_ context.Context, selector string) ([]string, error) {
	if d.groupErr != nil {
		return nil, d.groupErr
	}
	return d.groups[selector], nil
}

func (d *fakeDirectory) GetRecipientsForFrequency(_ context.Context, frequency string) ([]domain.Recipient, error) {
	d.frequency = frequency
	if d.regErr != nil {
		return nil, d.regErr
	}
	return d.registered, nil
}

type fakeRenderer struct {
	err      error
	rendered int
}

func (r *fakeRenderer) Render(payload domain.DigestPayload) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.rendered++
	return fmt.Sprintf("<html>%d items</html>", payload.Total()), nil
}

type fakeRuns struct {
	records []domain.RunRecord
	err     error
}

func (r *fakeRuns) SaveRun(_ context.Context, run domain.RunRecord) error {
	r.records = append(r.records, run)
	return r.err
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) PublishSummary(_ context.Context, summary string) error {
	n.messages = append(n.messages, summary)
	return nil
}

func addresses(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("reader%03d@example.com", i)
	}
	return out
}
