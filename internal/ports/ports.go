package ports

import (
	"context"
	"time"

	"AINewsDigest/internal/domain"
)

// Fetcher collects, filters, and ranks items for one source type.
// Implementations absorb origin failures and never return an error.
type Fetcher interface {
	Source() domain.SourceType
	Fetch(ctx context.Context) []domain.ContentItem
}

// RecipientDirectory resolves delivery addresses from groups and registered accounts.
type RecipientDirectory interface {
	GetRecipients(ctx context.Context, selector string) ([]string, error)
	GetRecipientsForFrequency(ctx context.Context, frequency string) ([]domain.Recipient, error)
}

// DeliveryChannel sends one already-batched message.
type DeliveryChannel interface {
	Name() string
	Send(ctx context.Context, recipients []string, subject, renderedBody string) error
}

// Renderer turns a digest payload into a document.
type Renderer interface {
	Render(payload domain.DigestPayload) (string, error)
}

// RunRepository persists run history.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
}

// Notifier streams run summaries to Telegram or other ops channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
