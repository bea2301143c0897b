package arxiv

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mmcdole/gofeed"

	"AINewsDigest/internal/infrastructure/httpclient"
)

// APIStrategy queries the Atom export API sorted by submission date.
type APIStrategy struct {
	http     *httpclient.Client
	endpoint string
}

var _ Strategy = (*APIStrategy)(nil)

// NewAPIStrategy targets the query endpoint (e.g. http://export.arxiv.org/api/query).
func NewAPIStrategy(client *httpclient.Client, endpoint string) *APIStrategy {
	return &APIStrategy{http: client, endpoint: endpoint}
}

// Name identifies the strategy.
func (a *APIStrategy) Name() string { return "api" }

// Recent returns up to limit newest submissions in category.
func (a *APIStrategy) Recent(ctx context.Context, category string, limit int) ([]Entry, error) {
	query, err := buildQueryURL(a.endpoint, category, limit)
	if err != nil {
		return nil, err
	}

	body, err := a.http.Get(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse atom: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		entry := Entry{
			ID:         paperID(firstNonEmpty(item.GUID, link)),
			Title:      collapse(item.Title),
			Abstract:   collapse(firstNonEmpty(item.Description, item.Content)),
			URL:        link,
			Categories: append([]string(nil), item.Categories...),
		}
		for _, person := range item.Authors {
			if person != nil && person.Name != "" {
				entry.Authors = append(entry.Authors, person.Name)
			}
		}
		if item.PublishedParsed != nil {
			entry.PublishedAt = item.PublishedParsed.UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func buildQueryURL(endpoint, category string, limit int) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid api endpoint %s: %w", endpoint, err)
	}
	q := parsed.Query()
	q.Set("search_query", "cat:"+category)
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")
	q.Set("max_results", strconv.Itoa(limit))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
