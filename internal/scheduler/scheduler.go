// Package scheduler drives pickup announcements on the front desk.
//
// Each tick picks at most one reservation whose end time has passed,
// ends it through the API, renders and synthesizes the bilingual
// announcement, plays it and records the result.  Ticks never overlap.
// The set of announced reservations lives only as long as the Scheduler.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/playzone-reservation/internal/announce"
	"github.com/iliyamo/playzone-reservation/internal/lifecycle"
	"github.com/iliyamo/playzone-reservation/internal/logging"
	"github.com/iliyamo/playzone-reservation/internal/metrics"
	"github.com/iliyamo/playzone-reservation/internal/model"
)

// Ender performs the guarded end transition for one reservation.
type Ender interface {
	EndIfTimedOut(ctx context.Context, id uint64) (lifecycle.Outcome, error)
}

// AudioSource resolves the pickup announcement for a display name.
type AudioSource interface {
	PickupAudio(ctx context.Context, name string) (announce.Pickup, error)
}

// Sequencer plays clips strictly in order.
type Sequencer interface {
	PlayAllSequential(ctx context.Context, urls []string) error
}

// Notifier surfaces tick outcomes to the operator.
type Notifier interface {
	Announced(ctx context.Context, a Announcement)
	Failed(ctx context.Context, reservationID uint64, err error)
}

// Announcement describes a pickup call that finished playing.
type Announcement struct {
	ReservationID uint64
	Name          string
	Texts         map[string]string
	At            time.Time
}

// Result is what a single tick did.
type Result int

const (
	// ResultIdle: no reservation was due.
	ResultIdle Result = iota
	// ResultBusy: another tick was still running.
	ResultBusy
	// ResultNotTimedOut: the server says the candidate is not due yet.
	ResultNotTimedOut
	ResultAnnounced
	ResultFailed
)

func (r Result) String() string {
	return [...]string{"idle", "busy", "not_timed_out", "announced", "failed"}[r]
}

// Options configures a Scheduler.
type Options struct {
	// Interval between ticks; 30s when zero.
	Interval time.Duration
	// DedupMax bounds the announced-id set.
	DedupMax int
	// Now is the clock; time.Now when nil.
	Now func() time.Time
	// Refresh runs before every driven tick.  The host uses it to pull a
	// fresh snapshot (and trigger the auto-start sweep).  Tick itself
	// never calls it.
	Refresh func(ctx context.Context) error
	// JumpCheckEvery is how often the wall clock is compared with the
	// monotonic clock to detect suspend/resume; 5s when zero.
	JumpCheckEvery time.Duration
	// MaxAttempts caps announcement attempts for a reservation that was
	// already ended; 5 when zero.
	MaxAttempts int
}

// Scheduler is the announcement poller.
type Scheduler struct {
	ender    Ender
	audio    AudioSource
	seq      Sequencer
	notifier Notifier
	opts     Options

	announced  *DedupSet
	announcing atomic.Bool

	snapMu   sync.RWMutex
	snapshot []model.Reservation

	// retry holds reservations this process ended but could not announce.
	// They no longer appear in the active snapshot.
	retryMu sync.Mutex
	retry   []pending

	runMu   sync.Mutex
	recheck chan struct{}
	cron    gocron.Scheduler
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func New(ender Ender, audio AudioSource, seq Sequencer, notifier Notifier, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.JumpCheckEvery <= 0 {
		opts.JumpCheckEvery = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Scheduler{
		ender:     ender,
		audio:     audio,
		seq:       seq,
		notifier:  notifier,
		opts:      opts,
		announced: NewDedupSet(opts.DedupMax),
		recheck:   make(chan struct{}, 1),
	}
}

// SetSnapshot replaces the reservation list the scheduler scans.
func (s *Scheduler) SetSnapshot(rs []model.Reservation) {
	cp := append([]model.Reservation(nil), rs...)
	s.snapMu.Lock()
	s.snapshot = cp
	s.snapMu.Unlock()
}

// Announced reports whether id is in the dedup set.
func (s *Scheduler) Announced(id uint64) bool { return s.announced.Has(id) }

// Tick runs one scheduling step synchronously.
func (s *Scheduler) Tick(ctx context.Context) (Result, error) {
	if !s.announcing.CompareAndSwap(false, true) {
		return ResultBusy, nil
	}
	defer s.announcing.Store(false)

	cand, retrying := s.nextRetry()
	if !retrying {
		now := s.opts.Now()
		s.snapMu.RLock()
		var ok bool
		cand, ok = lo.Find(s.snapshot, func(r model.Reservation) bool {
			return r.Overdue(now) && !s.announced.Has(r.ID)
		})
		s.snapMu.RUnlock()
		if !ok {
			return ResultIdle, nil
		}
	}

	// Claim before any awaited call so a concurrent trigger cannot pick
	// the same reservation.
	s.announced.Add(cand.ID)
	log := logging.FromContext(ctx).WithField("reservation_id", cand.ID)
	ctx = logging.ToContext(ctx, log)

	// Side effects finish even if the scheduler is being stopped; only
	// playback follows ctx.
	work := context.WithoutCancel(ctx)

	outcome := lifecycle.OutcomeAlreadyTerminal
	if !retrying {
		var err error
		outcome, err = s.ender.EndIfTimedOut(work, cand.ID)
		if err != nil {
			return s.fail(ctx, log, cand.ID, "end", err)
		}
		if outcome == lifecycle.OutcomeNotTimedOut {
			s.announced.Remove(cand.ID)
			metrics.Announcements.WithLabelValues("not_timed_out").Inc()
			log.Debug("server reports reservation not timed out yet")
			return ResultNotTimedOut, nil
		}
	}

	name := cand.CustomerName
	if name == "" {
		name = cand.Code
	}
	pickup, err := s.audio.PickupAudio(work, name)
	if err != nil {
		s.requeue(log, cand)
		return s.fail(ctx, log, cand.ID, "synthesize", err)
	}

	urls := make([]string, 0, len(announce.Locales))
	for _, loc := range announce.Locales {
		if u, ok := pickup.URLs[loc]; ok {
			urls = append(urls, u)
		}
	}
	if err := s.seq.PlayAllSequential(ctx, urls); err != nil {
		s.requeue(log, cand)
		return s.fail(ctx, log, cand.ID, "play", err)
	}
	s.dropRetry(cand.ID)

	metrics.Announcements.WithLabelValues("announced").Inc()
	log.WithField("outcome", outcome).Info("pickup announced")
	s.notifier.Announced(work, Announcement{
		ReservationID: cand.ID,
		Name:          name,
		Texts:         pickup.Texts,
		At:            s.opts.Now(),
	})
	return ResultAnnounced, nil
}

func (s *Scheduler) fail(ctx context.Context, log *logrus.Entry, id uint64, stage string, err error) (Result, error) {
	s.announced.Remove(id)
	metrics.Announcements.WithLabelValues("failed").Inc()
	log.WithError(err).WithField("stage", stage).Warn("announcement failed; will retry")
	s.notifier.Failed(context.WithoutCancel(ctx), id, err)
	return ResultFailed, err
}

type pending struct {
	res      model.Reservation
	attempts int
}

// nextRetry returns the oldest ended-but-unannounced reservation.
func (s *Scheduler) nextRetry() (model.Reservation, bool) {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()
	if len(s.retry) == 0 {
		return model.Reservation{}, false
	}
	return s.retry[0].res, true
}

// requeue moves r to the back of the retry list, dropping it once
// MaxAttempts announcement attempts have failed.
func (s *Scheduler) requeue(log *logrus.Entry, r model.Reservation) {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()
	p := pending{res: r}
	if found, i, ok := lo.FindIndexOf(s.retry, func(p pending) bool { return p.res.ID == r.ID }); ok {
		p = found
		s.retry = append(s.retry[:i], s.retry[i+1:]...)
	}
	p.attempts++
	if p.attempts >= s.opts.MaxAttempts {
		metrics.Announcements.WithLabelValues("abandoned").Inc()
		log.WithField("attempts", p.attempts).Error("giving up on pickup announcement")
		return
	}
	s.retry = append(s.retry, p)
}

func (s *Scheduler) dropRetry(id uint64) {
	s.retryMu.Lock()
	s.retry = lo.Reject(s.retry, func(p pending, _ int) bool { return p.res.ID == id })
	s.retryMu.Unlock()
}

// Pending reports how many ended reservations still await an
// announcement.
func (s *Scheduler) Pending() int {
	s.retryMu.Lock()
	defer s.retryMu.Unlock()
	return len(s.retry)
}

// Recheck asks for an immediate tick, e.g. after the host regains focus
// or the machine resumes from sleep.  Extra requests while one is pending
// are dropped.
func (s *Scheduler) Recheck() {
	select {
	case s.recheck <- struct{}{}:
	default:
	}
}

// Start runs a tick every Interval (the first one immediately) until
// Stop.  Ticks are also triggered by Recheck and by wall-clock jumps.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return errors.New("scheduler already stopped")
	}
	ctx, cancel := context.WithCancel(ctx)
	cron, err := gocron.NewScheduler()
	if err != nil {
		cancel()
		return err
	}
	_, err = cron.NewJob(
		gocron.DurationJob(s.opts.Interval),
		gocron.NewTask(func() { s.run(ctx) }),
		gocron.WithName("announcement-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = cron.Shutdown()
		return err
	}
	s.cron = cron
	s.cancel = cancel

	s.wg.Add(1)
	go s.watch(ctx)
	cron.Start()
	logging.FromContext(ctx).WithField("interval", s.opts.Interval).Info("announcement scheduler started")
	return nil
}

// Stop cancels pending playback, waits for an in-flight tick to return
// and prevents further ticks.
func (s *Scheduler) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.cron != nil {
		err = s.cron.Shutdown()
	}
	s.wg.Wait()
	return err
}

func (s *Scheduler) run(ctx context.Context) {
	if s.stopped.Load() || ctx.Err() != nil {
		return
	}
	if !s.runMu.TryLock() {
		return
	}
	defer s.runMu.Unlock()

	log := logging.FromContext(ctx)
	if s.opts.Refresh != nil {
		if err := s.opts.Refresh(ctx); err != nil {
			log.WithError(err).Warn("refresh before tick failed; using previous snapshot")
		}
	}
	res, err := s.Tick(ctx)
	if err != nil {
		return
	}
	if res == ResultAnnounced {
		// More children may be waiting; do not make them wait a full
		// interval.
		s.Recheck()
	}
}

// watch serves Recheck and detects suspend/resume: the monotonic clock
// stops while the machine sleeps but the wall clock does not.
func (s *Scheduler) watch(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTicker(s.opts.JumpCheckEvery)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.recheck:
			s.run(ctx)
		case now := <-t.C:
			if clockJumped(last, now, s.opts.JumpCheckEvery) {
				logging.FromContext(ctx).Info("wall clock jumped; rechecking")
				s.run(ctx)
			}
			last = now
		}
	}
}

func clockJumped(last, now time.Time, every time.Duration) bool {
	mono := now.Sub(last)
	wall := now.Round(0).Sub(last.Round(0))
	drift := wall - mono
	if drift < 0 {
		drift = -drift
	}
	return drift > every
}
