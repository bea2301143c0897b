package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"AINewsDigest/internal/config"
	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// DefaultBatchSize caps recipients per send when configuration leaves it unset.
const DefaultBatchSize = 50

// Batches splits recipients into consecutive groups of at most size addresses.
func Batches(recipients []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(recipients); start += size {
		end := min(start+size, len(recipients))
		out = append(out, recipients[start:end])
	}
	return out
}

// Deliver sends body to every batch and never stops early; each batch outcome
// lands in the report.
func Deliver(ctx context.Context, channel ports.DeliveryChannel, recipients []string, subject, body string, batchSize int, logger *slog.Logger) domain.DeliveryReport {
	if logger == nil {
		logger = slog.Default()
	}
	report := domain.DeliveryReport{}
	for i, batch := range Batches(recipients, batchSize) {
		result := domain.BatchResult{Index: i, Recipients: batch}
		if err := channel.Send(ctx, batch, subject, body); err != nil {
			result.Err = fmt.Errorf("%w: %w", domain.ErrDeliveryBatch, err)
			logger.Warn("delivery batch failed", "channel", channel.Name(), "batch", i,
				"recipients", len(batch), "error", result.Err)
		} else {
			logger.Debug("delivery batch sent", "channel", channel.Name(), "batch", i, "recipients", len(batch))
		}
		report.Batches = append(report.Batches, result)
	}
	logger.Info("delivery done", "channel", channel.Name(), "attempts", report.Attempts(),
		"delivered", report.Delivered(), "failed_batches", report.Failed())
	return report
}

// ResolveRecipients merges the active group with registered accounts when enabled.
// Addresses are deduplicated case-insensitively in first-seen order. Lookup
// failures are logged and contribute no addresses.
func ResolveRecipients(ctx context.Context, dir ports.RecipientDirectory, cfg config.RecipientsConfig, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == nil {
		return nil
	}

	var merged []string
	group, err := dir.GetRecipients(ctx, cfg.ActiveList)
	if err != nil {
		logger.Warn("recipient group lookup failed", "selector", cfg.ActiveList, "error", err)
	}
	merged = append(merged, group...)

	if cfg.IncludeRegistered {
		registered, err := dir.GetRecipientsForFrequency(ctx, cfg.Frequency)
		if err != nil {
			logger.Warn("registered recipient lookup failed", "frequency", cfg.Frequency, "error", err)
		}
		for _, r := range registered {
			merged = append(merged, r.Address)
		}
	}

	return uniqueAddresses(merged)
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
