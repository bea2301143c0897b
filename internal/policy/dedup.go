package policy

import (
	"strings"

	"AINewsDigest/internal/domain"
)

// DefaultSimilarityThreshold marks two titles as the same story.
const DefaultSimilarityThreshold = 0.7

// dedupOrder decides which source keeps a story reported by several.
var dedupOrder = []domain.SourceType{domain.SourcePaper, domain.SourceNews, domain.SourceDiscussion}

// Deduplicate drops items whose title is too similar to an earlier kept item,
// scanning papers, then news, then discussions. Survivors keep their order.
func Deduplicate(result domain.AggregatedResult, threshold float64) (domain.AggregatedResult, int) {
	out := domain.NewAggregatedResult()
	var kept [][]string
	removed := 0

	for _, st := range dedupOrder {
		for _, item := range result[st] {
			words := titleWords(item.Title)
			dup := false
			for _, prev := range kept {
				if Similarity(words, prev) > threshold {
					dup = true
					break
				}
			}
			if dup {
				removed++
				continue
			}
			kept = append(kept, words)
			out[st] = append(out[st], item)
		}
	}
	return out, removed
}

// Similarity is the Jaccard index of two word sets.
func Similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := map[string]struct{}{}
	for _, w := range b {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := set[w]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func titleWords(title string) []string {
	return strings.Fields(strings.ToLower(title))
}
