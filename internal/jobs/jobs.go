// Package jobs runs the server's background work on a gocron scheduler.
package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/config"
)

// Advancer is the bulk reserved→started sweep.
type Advancer interface {
	BulkAdvanceDue(ctx context.Context, now time.Time) (int64, error)
}

// Runner owns the gocron scheduler.
type Runner struct {
	cron gocron.Scheduler
}

// Start schedules the auto-start sweep every cfg.AutoStartEvery.  The
// sweep is idempotent, so it is safe to run alongside the announcers
// that trigger it through the API.
func Start(ctx context.Context, cfg config.JobsConfig, adv Advancer) (*Runner, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	r := &Runner{cron: cron}
	if cfg.AutoStartEnabled {
		j, err := cron.NewJob(
			gocron.DurationJob(cfg.AutoStartEvery),
			gocron.NewTask(func() { Sweep(ctx, adv, time.Now) }),
			gocron.WithName("auto-start-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = cron.Shutdown()
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"job_id": j.ID().String(), "every": cfg.AutoStartEvery}).Info("scheduled auto-start sweep")
	}
	cron.Start()
	return r, nil
}

// Sweep runs one auto-start pass.  Failures are logged; the next run
// retries.
func Sweep(ctx context.Context, adv Advancer, now func() time.Time) int64 {
	if ctx.Err() != nil {
		return 0
	}
	n, err := adv.BulkAdvanceDue(ctx, now().UTC())
	if err != nil {
		logrus.WithError(err).Warn("auto-start sweep failed")
		return 0
	}
	return n
}

// Shutdown waits for a running sweep and stops the scheduler.
func (r *Runner) Shutdown() error {
	return r.cron.Shutdown()
}
