// Package arxiv implements the preprint fetcher with API and listing-page access strategies.
package arxiv

import (
	"context"
	"regexp"
	"strings"
	"time"
)

var versionSuffix = regexp.MustCompile(`v\d+$`)

// Entry is one preprint as returned by a strategy. A zero PublishedAt means
// the date could not be parsed.
type Entry struct {
	ID          string
	Title       string
	Abstract    string
	URL         string
	Authors     []string
	Categories  []string
	PublishedAt time.Time
}

// Strategy lists the most recent submissions of one subject category.
type Strategy interface {
	Name() string
	Recent(ctx context.Context, category string, limit int) ([]Entry, error)
}

// paperID reduces an abs URL or identifier to its version-less arXiv id.
func paperID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimSuffix(id, "/")
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	id = strings.TrimPrefix(id, "arXiv:")
	return versionSuffix.ReplaceAllString(id, "")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
