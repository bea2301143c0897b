package usecase

import (
	"context"
	"sync/atomic"

	"AINewsDigest/internal/domain"
)

// CycleRunner executes one digest cycle.
type CycleRunner interface {
	RunDigestCycle(ctx context.Context) (domain.DigestPayload, domain.DeliveryReport, error)
}

// Trigger lets at most one cycle run at a time.
type Trigger struct {
	runner  CycleRunner
	running atomic.Bool
}

// NewTrigger guards runner against overlapping invocations.
func NewTrigger(runner CycleRunner) *Trigger {
	return &Trigger{runner: runner}
}

// Fire runs a cycle, or returns ErrRunInProgress immediately if one is in flight.
func (t *Trigger) Fire(ctx context.Context) (domain.DigestPayload, domain.DeliveryReport, error) {
	if !t.running.CompareAndSwap(false, true) {
		return domain.DigestPayload{}, domain.DeliveryReport{}, domain.ErrRunInProgress
	}
	defer t.running.Store(false)
	return t.runner.RunDigestCycle(ctx)
}

// Running reports whether a cycle is in flight.
func (t *Trigger) Running() bool {
	return t.running.Load()
}
