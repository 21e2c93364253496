package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/calsync"
)

// Runner is the reconciliation entry point the jobs drive.
type Runner interface {
	Run(ctx context.Context, window calsync.Window) (calsync.RunReport, error)
}

// ReconcileSchedule configures the periodic passes.
type ReconcileSchedule struct {
	// TodayCron drives the short-interval pass over today's reservations.
	TodayCron string
	// MonthCron drives the nightly pass over the coming month.
	MonthCron string
	// Timeout bounds a single pass.
	Timeout time.Duration
}

const defaultReconcileTimeout = 5 * time.Minute

// RegisterReconcileJobs registers the today and month passes.
func RegisterReconcileJobs(runner Runner, schedule ReconcileSchedule) error {
	if runner == nil {
		return fmt.Errorf("reconcile jobs require a runner")
	}
	if schedule.Timeout <= 0 {
		schedule.Timeout = defaultReconcileTimeout
	}

	jobs := []struct {
		name   string
		cron   string
		window calsync.Window
	}{
		{"calendar_sync_today", schedule.TodayCron, calsync.WindowToday},
		{"calendar_sync_month", schedule.MonthCron, calsync.WindowMonth},
	}
	for _, job := range jobs {
		jobLogger := log.With().
			Str("component", "calendar_sync_job").
			Str("job_name", job.name).
			Str("window", string(job.window)).
			Logger()
		window := job.window

		if _, err := AddJob(job.name, job.cron, func() {
			_, _ = runReconcile(runner, window, schedule.Timeout, jobLogger)
		}); err != nil {
			return fmt.Errorf("add %s job: %w", job.name, err)
		}
	}
	return nil
}

// runReconcile runs one pass with its own deadline. A pass already held by
// another instance is not an error.
func runReconcile(runner Runner, window calsync.Window, timeout time.Duration, logger zerolog.Logger) (calsync.RunReport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = logger.WithContext(ctx)

	report, err := runner.Run(ctx, window)
	switch {
	case errors.Is(err, calsync.ErrRunInProgress):
		logger.Debug().Msg("Calendar sync skipped: run already active")
		return report, nil
	case err != nil:
		logger.Error().Err(err).Msg("Calendar sync run failed")
		return report, err
	}
	return report, nil
}
