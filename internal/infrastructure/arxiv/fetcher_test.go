package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/infrastructure/httpclient"
	"AINewsDigest/internal/logging"
	"AINewsDigest/internal/policy"
)

var fetchTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeStrategy struct {
	entries map[string][]Entry
	fail    map[string]error
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) Recent(_ context.Context, category string, _ int) ([]Entry, error) {
	if err := f.fail[category]; err != nil {
		return nil, err
	}
	return f.entries[category], nil
}

func entry(id string, age time.Duration) Entry {
	return Entry{
		ID:          id,
		Title:       "Paper " + id,
		Abstract:    "We study transformer models.",
		URL:         "http://arxiv.org/abs/" + id,
		Authors:     []string{"A", "B", "C", "D"},
		PublishedAt: fetchTime.Add(-age),
	}
}

func testDeps(categories ...string) Deps {
	cfg := config.Default().Sources.Papers
	cfg.Categories = categories
	return Deps{
		Config: cfg,
		Tags:   policy.NewKeywords([]string{"Transformer"}),
		Logger: logging.Discard(),
		Now:    func() time.Time { return fetchTime },
	}
}

func ids(items []Entry) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

func TestFetchKeepsThreeDayWindow(t *testing.T) {
	t.Parallel()

	undated := entry("undated", 0)
	undated.PublishedAt = time.Time{}
	strategy := &fakeStrategy{entries: map[string][]Entry{"cs.AI": {
		entry("edge", 72*time.Hour),
		entry("late", 72*time.Hour+time.Second),
		entry("fresh", time.Hour),
		undated,
	}}}

	items := NewFetcherWithStrategy(strategy, testDeps("cs.AI")).Fetch(context.Background())
	require.Len(t, items, 2)
	assert.Equal(t, "fresh", items[0].ID)
	assert.Equal(t, "edge", items[1].ID)
	for _, it := range items {
		assert.True(t, it.IsTrending)
		assert.Len(t, it.Authors, 3)
		assert.Equal(t, []string{"Transformer"}, it.Tags)
		assert.Equal(t, "arXiv/cs.AI", it.SourceLabel)
	}
}

func TestFetchDeduplicatesAcrossCategoriesAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	strategy := &fakeStrategy{
		entries: map[string][]Entry{
			"cs.AI": {entry("shared", 2*time.Hour), entry("ai-only", 3*time.Hour)},
			"cs.LG": {entry("shared", 2*time.Hour), entry("lg-only", time.Hour)},
		},
		fail: map[string]error{"cs.CL": errors.New("503")},
	}

	items := NewFetcherWithStrategy(strategy, testDeps("cs.AI", "cs.CL", "cs.LG")).Fetch(context.Background())
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.ID
	}
	assert.Equal(t, []string{"lg-only", "shared", "ai-only"}, got)
	assert.Equal(t, "arXiv/cs.AI", items[1].SourceLabel, "first category wins for shared papers")
}

func TestFetchTruncatesToTen(t *testing.T) {
	t.Parallel()

	var entries []Entry
	for i := 0; i < 12; i++ {
		entries = append(entries, entry(fmt.Sprintf("p%02d", i), time.Duration(i+1)*time.Hour))
	}
	strategy := &fakeStrategy{entries: map[string][]Entry{"cs.AI": entries}}

	items := NewFetcherWithStrategy(strategy, testDeps("cs.AI")).Fetch(context.Background())
	require.Len(t, items, 10)
	assert.Equal(t, "p00", items[0].ID)
	assert.Equal(t, "p09", items[9].ID)
}

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2503.01234v2</id>
    <published>%s</published>
    <updated>%s</updated>
    <title>Sparse   Attention
      at Scale</title>
    <summary>  We present a new transformer.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2503.01234v2" rel="alternate" type="text/html"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2501.00001v1</id>
    <published>%s</published>
    <title>Old paper</title>
    <summary>Older.</summary>
    <link href="http://arxiv.org/abs/2501.00001v1" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func TestAPIStrategyParsesAtom(t *testing.T) {
	t.Parallel()

	fresh := fetchTime.Add(-5 * time.Hour).Format(time.RFC3339)
	old := fetchTime.Add(-96 * time.Hour).Format(time.RFC3339)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "cat:cs.LG", q.Get("search_query"))
		assert.Equal(t, "submittedDate", q.Get("sortBy"))
		assert.Equal(t, "descending", q.Get("sortOrder"))
		assert.Equal(t, "30", q.Get("max_results"))
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprintf(w, atomFixture, fresh, fresh, old)
	}))
	defer server.Close()

	deps := testDeps("cs.LG")
	deps.Config.Endpoint = server.URL + "/api/query"
	deps.HTTP = httpclient.New(server.Client(), httpclient.Options{})

	f := NewFetcher(deps)
	assert.Equal(t, "api", f.Strategy())

	items := f.Fetch(context.Background())
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, "2503.01234", it.ID)
	assert.Equal(t, "Sparse Attention at Scale", it.Title)
	assert.Equal(t, "We present a new transformer.", it.Body)
	assert.Equal(t, "http://arxiv.org/abs/2503.01234v2", it.URL)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, it.Authors)
	assert.Equal(t, []string{"cs.LG", "cs.AI"}, it.Categories)
}

func TestPaperIDNormalization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2503.01234", paperID("http://arxiv.org/abs/2503.01234v2"))
	assert.Equal(t, "2501.00001", paperID("arXiv:2501.00001"))
	assert.Equal(t, "cs/0101001", paperID("http://arxiv.org/abs/cs/0101001v1"))
	assert.Equal(t, []string{"x"}, ids([]Entry{{ID: "x"}}))
}

func TestEntriesWithoutIDAreNotCollapsed(t *testing.T) {
	t.Parallel()

	first, second := entry("", time.Hour), entry("", 2*time.Hour)
	first.Title, second.Title = "First untitled", "Second untitled"
	strategy := &fakeStrategy{entries: map[string][]Entry{
		"cs.AI": {first, second, entry("2503.00001", time.Hour)},
		"cs.LG": {entry("2503.00001", time.Hour)},
	}}

	items := NewFetcherWithStrategy(strategy, testDeps("cs.AI", "cs.LG")).Fetch(context.Background())
	assert.Len(t, items, 3)
}
