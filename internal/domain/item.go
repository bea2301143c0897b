package domain

import (
	"fmt"
	"time"
)

// SourceType identifies one of the content categories collected per run.
type SourceType string

const (
	SourceDiscussion SourceType = "discussion"
	SourcePaper      SourceType = "paper"
	SourceNews       SourceType = "news"
)

// SourceTypes lists every source type in canonical digest order.
func SourceTypes() []SourceType {
	return []SourceType{SourceDiscussion, SourcePaper, SourceNews}
}

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceDiscussion, SourcePaper, SourceNews:
		return true
	}
	return false
}

// ContentItem is the normalized unit every fetcher produces.
type ContentItem struct {
	ID          string
	Title       string
	Body        string
	URL         string
	SourceLabel string
	PublishedAt time.Time
	Tags        []string
	IsTrending  bool

	// Discussion-only signals. Missing values are zero.
	Score        int
	CommentCount int
	Engagement   int
	Author       string

	// Paper-only metadata.
	Authors    []string
	Categories []string

	// News feed category label.
	Category string

	sourceType SourceType
}

// NewContentItem fixes the source type of an item at creation.
func NewContentItem(source SourceType) ContentItem {
	return ContentItem{sourceType: source}
}

// SourceType returns the category the item was created for.
func (c ContentItem) SourceType() SourceType {
	return c.sourceType
}

func (c ContentItem) String() string {
	return fmt.Sprintf("%s[%s] %q", c.sourceType, c.SourceLabel, c.Title)
}

// AggregatedResult maps each source type to its ranked, truncated items.
type AggregatedResult map[SourceType][]ContentItem

// NewAggregatedResult returns a result with every source key present.
func NewAggregatedResult() AggregatedResult {
	res := make(AggregatedResult, len(SourceTypes()))
	for _, st := range SourceTypes() {
		res[st] = []ContentItem{}
	}
	return res
}

// Total counts items across all sources.
func (r AggregatedResult) Total() int {
	total := 0
	for _, items := range r {
		total += len(items)
	}
	return total
}
