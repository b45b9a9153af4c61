package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"staydesk/internal/bookings"
	"staydesk/pkg/logger"
)

// JobProcessor runs the background lifecycle sweeps
type JobProcessor struct {
	manager *bookings.Manager
	store   bookings.Store
	config  *JobConfig
	logger  *logger.Logger

	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	NoShowInterval   time.Duration
	NoShowGrace      time.Duration
	CompleteInterval time.Duration
	CompleteGrace    time.Duration
	BatchSize        int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		NoShowInterval:   15 * time.Minute,
		NoShowGrace:      24 * time.Hour,
		CompleteInterval: 15 * time.Minute,
		CompleteGrace:    2 * time.Hour,
		BatchSize:        100,
	}
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Transitioned int
	Skipped      int
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(manager *bookings.Manager, store bookings.Store, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	defaults := DefaultJobConfig()
	if config.NoShowInterval <= 0 {
		config.NoShowInterval = defaults.NoShowInterval
	}
	if config.CompleteInterval <= 0 {
		config.CompleteInterval = defaults.CompleteInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}

	return &JobProcessor{
		manager: manager,
		store:   store,
		config:  config,
		logger:  log.WithComponent("jobs"),
		done:    make(chan struct{}),
	}
}

// Start starts all background jobs. Later calls do nothing.
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.startOnce.Do(func() {
		jp.wg.Add(2)
		go jp.every(ctx, "no-show", jp.config.NoShowInterval, jp.SweepNoShows)
		go jp.every(ctx, "completion", jp.config.CompleteInterval, jp.SweepCompletions)

		jp.logger.Info("Lifecycle jobs started",
			"no_show_interval", jp.config.NoShowInterval.String(),
			"complete_interval", jp.config.CompleteInterval.String(),
		)
	})
}

// Stop stops all background jobs and waits for a running sweep to finish
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() {
		close(jp.done)
	})
	jp.wg.Wait()
	jp.logger.Info("Lifecycle jobs stopped")
}

func (jp *JobProcessor) every(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) (SweepResult, error)) {
	defer jp.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := sweep(ctx)
			if err != nil {
				jp.logger.Error("Sweep failed", "job", name, "error", err)
				continue
			}
			if result.Transitioned > 0 || result.Skipped > 0 {
				jp.logger.Info("Sweep finished", "job", name, "transitioned", result.Transitioned, "skipped", result.Skipped)
			}
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepNoShows marks confirmed bookings whose check-in passed more than the
// grace period ago as no_show
func (jp *JobProcessor) SweepNoShows(ctx context.Context) (SweepResult, error) {
	before := jp.manager.Now().Add(-jp.config.NoShowGrace)
	return jp.sweep(ctx, bookings.StatusConfirmed, bookings.DueCheckIn, before, bookings.StatusNoShow, "guest did not arrive")
}

// SweepCompletions completes checked-in bookings whose check-out passed more
// than the grace period ago
func (jp *JobProcessor) SweepCompletions(ctx context.Context) (SweepResult, error) {
	before := jp.manager.Now().Add(-jp.config.CompleteGrace)
	return jp.sweep(ctx, bookings.StatusCheckedIn, bookings.DueCheckOut, before, bookings.StatusCompleted, "stay ended")
}

func (jp *JobProcessor) sweep(ctx context.Context, from bookings.Status, due bookings.DueField, before time.Time, to bookings.Status, reason string) (SweepResult, error) {
	var result SweepResult

	stale, err := jp.store.ListStaleBookings(ctx, from, due, before, jp.config.BatchSize)
	if err != nil {
		return result, err
	}

	for _, b := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		_, err := jp.manager.TransitionStatus(ctx, b.ID, to, bookings.SystemActor(), bookings.TransitionOptions{Reason: reason})
		switch {
		case err == nil:
			result.Transitioned++
		case errors.Is(err, bookings.ErrConcurrentModification),
			errors.Is(err, bookings.ErrInvalidTransition),
			errors.Is(err, bookings.ErrTerminalState):
			// another writer moved the booking first
			result.Skipped++
		default:
			return result, err
		}
	}
	return result, nil
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"no_show_interval":  jp.config.NoShowInterval.String(),
		"no_show_grace":     jp.config.NoShowGrace.String(),
		"complete_interval": jp.config.CompleteInterval.String(),
		"complete_grace":    jp.config.CompleteGrace.String(),
		"batch_size":        jp.config.BatchSize,
	}
}
