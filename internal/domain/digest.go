package domain

import "time"

// DigestPayload is the immutable structure handed to rendering and delivery.
type DigestPayload struct {
	discussions []ContentItem
	papers      []ContentItem
	news        []ContentItem
	generatedAt time.Time
}

// NewDigestPayload copies the section slices so later edits to the inputs are not observed.
func NewDigestPayload(discussions, papers, news []ContentItem, generatedAt time.Time) DigestPayload {
	return DigestPayload{
		discussions: cloneItems(discussions),
		papers:      cloneItems(papers),
		news:        cloneItems(news),
		generatedAt: generatedAt,
	}
}

// Discussions returns a copy of the discussion section.
func (d DigestPayload) Discussions() []ContentItem { return cloneItems(d.discussions) }

// Papers returns a copy of the paper section.
func (d DigestPayload) Papers() []ContentItem { return cloneItems(d.papers) }

// News returns a copy of the news section.
func (d DigestPayload) News() []ContentItem { return cloneItems(d.news) }

// GeneratedAt is the assembly timestamp.
func (d DigestPayload) GeneratedAt() time.Time { return d.generatedAt }

// Section returns the items for a single source type.
func (d DigestPayload) Section(st SourceType) []ContentItem {
	switch st {
	case SourceDiscussion:
		return d.Discussions()
	case SourcePaper:
		return d.Papers()
	case SourceNews:
		return d.News()
	}
	return nil
}

// Counts reports section sizes keyed by source type.
func (d DigestPayload) Counts() map[SourceType]int {
	return map[SourceType]int{
		SourceDiscussion: len(d.discussions),
		SourcePaper:      len(d.papers),
		SourceNews:       len(d.news),
	}
}

// Total counts items in all sections.
func (d DigestPayload) Total() int {
	return len(d.discussions) + len(d.papers) + len(d.news)
}

// Empty reports whether every section is empty.
func (d DigestPayload) Empty() bool {
	return d.Total() == 0
}

func cloneItems(items []ContentItem) []ContentItem {
	out := make([]ContentItem, len(items))
	for i, item := range items {
		item.Tags = append([]string(nil), item.Tags...)
		item.Authors = append([]string(nil), item.Authors...)
		item.Categories = append([]string(nil), item.Categories...)
		out[i] = item
	}
	return out
}
