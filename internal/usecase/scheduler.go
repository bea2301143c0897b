package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"AINewsDigest/internal/domain"
	"AINewsDigest/internal/ports"
)

// Scheduler wires the cron driver with the trigger guard.
type Scheduler struct {
	driver  ports.Scheduler
	trigger *Trigger
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, trigger *Trigger, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, trigger: trigger, logger: logger}
}

// Start registers the cycle with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.trigger == nil {
		return nil
	}

	job := func(fired time.Time) {
		s.logger.Info("scheduled digest cycle", "fired_at", fired)
		_, _, err := s.trigger.Fire(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			s.logger.Warn("scheduled cycle skipped", "error", err)
		case IsFatal(err):
			s.logger.Error("scheduled cycle failed", "error", err)
		case err != nil:
			s.logger.Warn("scheduled cycle finished with error", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
