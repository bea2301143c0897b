package domain

import (
	"errors"
	"fmt"
	"time"
)

// Recipient is a registered account whose delivery cadence matched.
type Recipient struct {
	Address  string
	Name     string
	Metadata map[string]string
}

// BatchResult captures one send attempt.
type BatchResult struct {
	Index      int
	Recipients []string
	Err        error
}

// DeliveryReport aggregates every batch outcome for a run.
type DeliveryReport struct {
	Batches []BatchResult
}

// Attempts is the number of batches sent.
func (r DeliveryReport) Attempts() int {
	return len(r.Batches)
}

// Delivered counts recipients in successful batches.
func (r DeliveryReport) Delivered() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err == nil {
			n += len(b.Recipients)
		}
	}
	return n
}

// Failed counts unsuccessful batches.
func (r DeliveryReport) Failed() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err != nil {
			n++
		}
	}
	return n
}

// Sent reports whether at least one batch went out.
func (r DeliveryReport) Sent() bool {
	return r.Delivered() > 0
}

// Err joins batch failures; nil when every batch succeeded.
func (r DeliveryReport) Err() error {
	var errs []error
	for _, b := range r.Batches {
		if b.Err != nil {
			errs = append(errs, fmt.Errorf("batch %d (%d recipients): %w", b.Index, len(b.Recipients), b.Err))
		}
	}
	return errors.Join(errs...)
}

// RunStatus enumerates outcomes persisted per run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// RunRecord is persisted to history after each cycle.
type RunRecord struct {
	StartedAt       time.Time
	Counts          map[SourceType]int
	EmailSent       bool
	RecipientsCount int
	FailedBatches   int
	Status          RunStatus
	ErrorMessage    string
	Duration        time.Duration
}
