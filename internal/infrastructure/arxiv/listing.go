package arxiv

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AINewsDigest/internal/infrastructure/httpclient"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ListingStrategy scrapes category listing pages. Dates have day resolution.
type ListingStrategy struct {
	http       *httpclient.Client
	urlPattern string
}

var _ Strategy = (*ListingStrategy)(nil)

// NewListingStrategy wires a listing URL pattern with one %s for the category.
func NewListingStrategy(client *httpclient.Client, urlPattern string) *ListingStrategy {
	return &ListingStrategy{http: client, urlPattern: urlPattern}
}

// Name identifies the strategy.
func (l *ListingStrategy) Name() string { return "listing" }

// Recent reads the first page of the category listing.
func (l *ListingStrategy) Recent(ctx context.Context, category string, limit int) ([]Entry, error) {
	pageURL, err := buildPageURL(fmt.Sprintf(l.urlPattern, category), 0, limit)
	if err != nil {
		return nil, err
	}

	body, err := l.http.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var entries []Entry
	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		if len(entries) >= limit {
			return false
		}
		entry, ok := parseEntry(dt, dt.Next(), category)
		if ok {
			entries = append(entries, entry)
		}
		return true
	})
	return entries, nil
}

func parseEntry(dt, dd *goquery.Selection, category string) (Entry, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, exists := link.Attr("href")
	if !exists {
		return Entry{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, a *goquery.Selection) {
		if name := strings.TrimSpace(a.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	entry := Entry{
		ID:         paperID(id),
		Title:      collapse(title),
		Abstract:   collapse(summary),
		URL:        href,
		Authors:    authors,
		Categories: []string{category},
	}
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			entry.PublishedAt = parsed
		}
	}
	return entry, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
