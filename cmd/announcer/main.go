// Command announcer is the front-desk daemon: it polls the reservation
// API, ends timed-out sessions and plays the pickup announcement for each.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/apiclient"
	"github.com/iliyamo/playzone-reservation/internal/config"
	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/playback"
	"github.com/iliyamo/playzone-reservation/internal/scheduler"
	"github.com/iliyamo/playzone-reservation/internal/service"
)

func main() {
	cfg := config.LoadAnnouncerConfig()
	logging.Init(cfg.Env, cfg.LogLevel)
	log := logrus.WithField("component", "announcer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ToContext(ctx, log)

	api := apiclient.New(cfg.APIBaseURL, cfg.Email, cfg.Password, cfg.RequestTimeout)
	if err := login(ctx, api); err != nil {
		log.WithError(err).Fatal("could not log in to the reservation API")
	}

	player, err := playback.NewExecPlayer(cfg.PlayerCmd)
	if err != nil {
		log.WithError(err).Fatal("audio player unavailable")
	}

	notifier := scheduler.LogNotifier{}
	if cfg.PublishEvents {
		notifier.Publisher = service.NewPublisher(config.BrokerURL())
	}

	var sched *scheduler.Scheduler
	sched = scheduler.New(api, api, playback.NewSequencer(player), notifier, scheduler.Options{
		Interval: cfg.Interval,
		DedupMax: cfg.DedupMax,
		Refresh: func(ctx context.Context) error {
			if cfg.AutoStart {
				if n, err := api.AutoStart(ctx); err != nil {
					logging.FromContext(ctx).WithError(err).Warn("auto-start sweep failed")
				} else if n > 0 {
					logging.FromContext(ctx).WithField("started", n).Info("auto-started reservations")
				}
			}
			list, err := api.Active(ctx)
			if err != nil {
				return err
			}
			sched.SetSnapshot(list)
			return nil
		},
	})

	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Fatal("start scheduler")
	}

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	for {
		select {
		case <-usr1:
			log.Info("recheck requested")
			sched.Recheck()
		case <-ctx.Done():
			log.Info("stopping announcer")
			if err := sched.Stop(); err != nil {
				log.WithError(err).Warn("scheduler shutdown")
			}
			return
		}
	}
}

// login retries until the API accepts the credentials, giving up after
// two minutes.
func login(ctx context.Context, api *apiclient.Client) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.RetryNotify(func() error {
		err := api.Login(ctx)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logging.FromContext(ctx).WithError(err).Warnf("login failed; retrying in %s", wait)
	})
}
