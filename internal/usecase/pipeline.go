package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/metrics"
	"AINewsDigest/internal/ports"
)

const subjectDateLayout = "January 2, 2006"

// PipelineDeps wires all driven adapters into the digest cycle.
type PipelineDeps struct {
	Aggregator *Aggregator
	Renderer   ports.Renderer
	Directory  ports.RecipientDirectory
	Channel    ports.DeliveryChannel
	Runs       ports.RunRepository
	Notifier   ports.Notifier
	Recipients config.RecipientsConfig
	Delivery   config.DeliveryConfig
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Pipeline implements the digest workflow: aggregate, assemble, render, deliver, record.
type Pipeline struct {
	aggregator *Aggregator
	renderer   ports.Renderer
	directory  ports.RecipientDirectory
	channel    ports.DeliveryChannel
	runs       ports.RunRepository
	notifier   ports.Notifier
	recipients config.RecipientsConfig
	delivery   config.DeliveryConfig
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

var _ CycleRunner = (*Pipeline)(nil)

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		aggregator: deps.Aggregator,
		renderer:   deps.Renderer,
		directory:  deps.Directory,
		channel:    deps.Channel,
		runs:       deps.Runs,
		notifier:   deps.Notifier,
		recipients: deps.Recipients,
		delivery:   deps.Delivery,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        now,
	}
}

// Preview aggregates and renders without delivering.
func (p *Pipeline) Preview(ctx context.Context) (domain.DigestPayload, string, error) {
	result, err := p.aggregator.Run(ctx)
	if err != nil {
		return domain.DigestPayload{}, "", err
	}
	payload := Assemble(result, p.now())
	if p.renderer == nil {
		return payload, "", nil
	}
	body, err := p.renderer.Render(payload)
	if err != nil {
		return payload, "", fmt.Errorf("render digest: %w", err)
	}
	return payload, body, nil
}

// RunDigestCycle runs one full cycle. Only ErrAggregationFailure is returned;
// render, recipient, delivery and bookkeeping failures are logged and recorded.
func (p *Pipeline) RunDigestCycle(ctx context.Context) (domain.DigestPayload, domain.DeliveryReport, error) {
	started := p.now()
	record := domain.RunRecord{StartedAt: started, Status: domain.RunCompleted}
	report := domain.DeliveryReport{}

	result, err := p.aggregator.Run(ctx)
	if err != nil {
		record.Status = domain.RunFailed
		record.ErrorMessage = err.Error()
		p.finish(ctx, &record, started, report)
		return domain.DigestPayload{}, report, err
	}

	payload := Assemble(result, p.now())
	record.Counts = payload.Counts()
	p.logger.Info("digest assembled", "total", payload.Total(),
		"discussion", record.Counts[domain.SourceDiscussion],
		"paper", record.Counts[domain.SourcePaper],
		"news", record.Counts[domain.SourceNews])

	report, record = p.deliver(ctx, payload, record)
	p.finish(ctx, &record, started, report)
	return payload, report, nil
}

func (p *Pipeline) deliver(ctx context.Context, payload domain.DigestPayload, record domain.RunRecord) (domain.DeliveryReport, domain.RunRecord) {
	report := domain.DeliveryReport{}

	if p.renderer == nil {
		p.logger.Warn("no renderer configured, delivery skipped")
		record.Status = domain.RunSkipped
		return report, record
	}
	body, err := p.renderer.Render(payload)
	if err != nil {
		p.logger.Error("render failed", "error", err)
		record.Status = domain.RunFailed
		record.ErrorMessage = err.Error()
		return report, record
	}

	recipients := ResolveRecipients(ctx, p.directory, p.recipients, p.logger)
	record.RecipientsCount = len(recipients)
	if p.channel == nil || len(recipients) == 0 {
		p.logger.Warn("delivery skipped", "channel_configured", p.channel != nil, "recipients", len(recipients))
		record.Status = domain.RunSkipped
		return report, record
	}

	report = Deliver(ctx, p.channel, recipients, p.subject(payload), body, p.delivery.BatchSize, p.logger)
	record.EmailSent = report.Sent()
	record.FailedBatches = report.Failed()
	switch {
	case report.Failed() == 0:
		record.Status = domain.RunCompleted
	case report.Sent():
		record.Status = domain.RunPartial
	default:
		record.Status = domain.RunFailed
	}
	if err := report.Err(); err != nil {
		record.ErrorMessage = err.Error()
	}
	return report, record
}

func (p *Pipeline) subject(payload domain.DigestPayload) string {
	base := strings.TrimSpace(p.delivery.Subject)
	if base == "" {
		base = "Daily AI Digest"
	}
	return fmt.Sprintf("%s - %s", base, payload.GeneratedAt().Format(subjectDateLayout))
}

// finish records history, metrics and the ops summary; none of these can fail the cycle.
func (p *Pipeline) finish(ctx context.Context, record *domain.RunRecord, started time.Time, report domain.DeliveryReport) {
	record.Duration = p.now().Sub(started)
	p.metrics.ObserveRun(record.Duration)
	p.metrics.ObserveDelivery(report)

	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, *record); err != nil {
			p.logger.Error("record run failed", "error", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(ctx, buildSummaryMessage(*record)); err != nil {
			p.logger.Warn("publish summary failed", "error", err)
		}
	}

	level := slog.LevelInfo
	if record.Status == domain.RunFailed {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "digest cycle finished", "status", record.Status,
		"recipients", record.RecipientsCount, "failed_batches", record.FailedBatches,
		"duration", record.Duration)
}

func buildSummaryMessage(record domain.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AI digest run %s (%s)\n", record.Status, record.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Discussions: %d\nPapers: %d\nNews: %d\n",
		record.Counts[domain.SourceDiscussion],
		record.Counts[domain.SourcePaper],
		record.Counts[domain.SourceNews])
	fmt.Fprintf(&b, "Recipients: %d\nFailed batches: %d\n", record.RecipientsCount, record.FailedBatches)
	if record.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error: %s\n", record.ErrorMessage)
	}
	return b.String()
}

// IsFatal reports whether err should stop the caller.
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrAggregationFailure)
}
