package policy

import (
	"slices"

	"AINewsDigest/internal/domain"
)

// SortByEngagement orders items by descending engagement, keeping fetch order on ties.
func SortByEngagement(items []domain.ContentItem) {
	slices.SortStableFunc(items, func(a, b domain.ContentItem) int {
		return b.Engagement - a.Engagement
	})
}

// SortByRecency orders items newest first, keeping fetch order on ties.
func SortByRecency(items []domain.ContentItem) {
	slices.SortStableFunc(items, func(a, b domain.ContentItem) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

// Truncate caps items at limit. A non-positive limit yields an empty slice.
func Truncate(items []domain.ContentItem, limit int) []domain.ContentItem {
	if limit <= 0 {
		return []domain.ContentItem{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// Engagement weights comments twice as heavily as votes.
func Engagement(score, comments int) int {
	return score + 2*comments
}
