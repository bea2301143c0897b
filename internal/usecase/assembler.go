package usecase

import (
	"time"

	"AINewsDigest/internal/domain"
)

// Assemble packages an aggregated result into an immutable digest payload.
// Items keep the order and count their fetchers produced.
func Assemble(result domain.AggregatedResult, generatedAt time.Time) domain.DigestPayload {
	return domain.NewDigestPayload(
		result[domain.SourceDiscussion],
		result[domain.SourcePaper],
		result[domain.SourceNews],
		generatedAt,
	)
}
