package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/safespot-alerts/internal/detector"
	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/observability"
)

const (
	DefaultRefreshInterval = 5 * time.Minute
	DefaultRetryDelay      = 30 * time.Second
)

var ErrRefreshInProgress = errors.New("refresh already in progress")

type Fetcher interface {
	FetchAll(ctx context.Context) (models.Snapshot, error)
}

type SnapshotStore interface {
	Load(ctx context.Context) *models.Snapshot
	Save(ctx context.Context, snap models.Snapshot)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, alerts []models.Alert)
}

type SchedulerOptions struct {
	Interval   time.Duration
	RetryDelay time.Duration
	// RefreshOnFirstFix runs a user-initiated refresh as soon as a location
	// is known after Start.
	RefreshOnFirstFix bool
	Clock             clockwork.Clock
	Metrics           *observability.Metrics
}

// Scheduler owns the refresh cadence: periodic silent refreshes while
// auto-refresh is on and a location is known, and one delayed retry after a
// failed user-initiated refresh. At most one refresh runs at a time.
type Scheduler struct {
	store      *Store
	fetcher    Fetcher
	snapshots  SnapshotStore
	dispatcher Dispatcher

	interval          time.Duration
	retryDelay        time.Duration
	refreshOnFirstFix bool
	clock             clockwork.Clock
	metrics           *observability.Metrics

	busy atomic.Bool
	wg   sync.WaitGroup

	mu             sync.Mutex
	ctx            context.Context // nil until Start and after Stop
	cancel         context.CancelFunc
	periodicCancel context.CancelFunc
	retryCancel    context.CancelFunc
	retryGen       uint64
	hadFix         bool
}

func NewScheduler(store *Store, fetcher Fetcher, snapshots SnapshotStore, dispatcher Dispatcher, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		store:             store,
		fetcher:           fetcher,
		snapshots:         snapshots,
		dispatcher:        dispatcher,
		interval:          opts.Interval,
		retryDelay:        opts.RetryDelay,
		refreshOnFirstFix: opts.RefreshOnFirstFix,
		clock:             opts.Clock,
		metrics:           opts.Metrics,
	}
	if s.interval <= 0 {
		s.interval = DefaultRefreshInterval
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	return s
}

// Start restores the cached snapshot and arms the timers. Timers and retries
// only run between Start and Stop.
func (s *Scheduler) Start(ctx context.Context) {
	cached := s.snapshots.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return
	}

	if cached != nil {
		s.store.Restore(cached)
		s.setGauges(*cached, false)
		slog.Info("restored cached snapshot", "earthquakes", len(cached.Earthquakes), "alerts", len(cached.Alerts), "last_updated", cached.FetchedAt)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.reconcileLocked()

	if s.store.UserLocation() != nil {
		s.hadFix = true
		if s.refreshOnFirstFix {
			s.goRefreshLocked()
		}
	}
	slog.Info("refresh scheduler started", "interval", s.interval, "retry_delay", s.retryDelay)
}

// Stop cancels the timers and waits for scheduler goroutines to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx = nil
	s.cancel = nil
	s.periodicCancel = nil
	s.retryCancel = nil
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("refresh scheduler stopped")
}

// Refresh runs one fetch cycle. It returns ErrRefreshInProgress if another
// cycle is running, or the fetch error on failure.
func (s *Scheduler) Refresh(ctx context.Context, userInitiated bool) error {
	trigger := "silent"
	if userInitiated {
		trigger = "user"
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.countRefresh(trigger, "busy")
		return ErrRefreshInProgress
	}
	defer s.busy.Store(false)

	if err := s.store.Begin(userInitiated); err != nil {
		return err
	}

	snap, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		if ferr := s.store.Fail(err); ferr != nil {
			slog.Error("error recording refresh failure", "error", ferr)
		}
		s.countRefresh(trigger, "error")
		if s.metrics != nil {
			s.metrics.Connected.Set(0)
		}
		slog.Warn("refresh failed", "trigger", trigger, "error", err)

		if userInitiated {
			s.scheduleRetry()
		} else if s.retryPending() {
			if rerr := s.store.ScheduleRetry(); rerr != nil {
				slog.Error("error marking retry pending", "error", rerr)
			}
		}
		return err
	}

	// The persisted snapshot must be read before the new one overwrites it.
	previous := s.snapshots.Load(ctx)
	if user := s.store.UserLocation(); user != nil {
		found := detector.FindNewNearby(snap.All(), previous, *user, models.ProximityRadiusKm, s.clock.Now())
		if len(found) > 0 {
			slog.Info("new hazards nearby", "count", len(found))
			s.dispatcher.Dispatch(ctx, found)
		}
	}

	if err := s.store.Succeed(snap); err != nil {
		s.countRefresh(trigger, "error")
		slog.Error("error committing snapshot", "trigger", trigger, "error", err)
		return fmt.Errorf("error committing snapshot: %w", err)
	}
	s.snapshots.Save(ctx, snap)
	s.cancelRetry()

	s.countRefresh(trigger, "success")
	s.setGauges(snap, true)
	slog.Info("refresh complete", "trigger", trigger, "earthquakes", len(snap.Earthquakes), "alerts", len(snap.Alerts))
	return nil
}

func (s *Scheduler) SetUserLocation(u models.UserLocation) {
	s.store.SetUserLocation(u)

	s.mu.Lock()
	defer s.mu.Unlock()
	// a new location always restarts the periodic timer
	s.stopPeriodicLocked()
	s.reconcileLocked()

	if s.ctx != nil && !s.hadFix {
		s.hadFix = true
		if s.refreshOnFirstFix {
			s.goRefreshLocked()
		}
	}
}

func (s *Scheduler) ClearUserLocation() {
	s.store.ClearUserLocation()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPeriodicLocked()
}

func (s *Scheduler) SetAutoRefresh(enabled bool) {
	s.store.SetAutoRefresh(enabled)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileLocked()
}

// PeriodicActive reports whether the periodic timer is armed.
func (s *Scheduler) PeriodicActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.periodicCancel != nil
}

func (s *Scheduler) retryPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCancel != nil
}

func (s *Scheduler) reconcileLocked() {
	want := s.ctx != nil && s.store.AutoRefresh() && s.store.UserLocation() != nil
	switch {
	case want && s.periodicCancel == nil:
		ctx, cancel := context.WithCancel(s.ctx)
		s.periodicCancel = cancel
		s.wg.Add(1)
		go s.runPeriodic(ctx, s.ctx, s.clock.NewTicker(s.interval))
	case !want:
		s.stopPeriodicLocked()
	}
}

func (s *Scheduler) stopPeriodicLocked() {
	if s.periodicCancel != nil {
		s.periodicCancel()
		s.periodicCancel = nil
	}
}

func (s *Scheduler) runPeriodic(ctx, base context.Context, ticker clockwork.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := s.Refresh(base, false); errors.Is(err, ErrRefreshInProgress) {
				slog.Debug("periodic refresh skipped, refresh in progress")
			}
		}
	}
}

// scheduleRetry arms a single silent retry, replacing any pending one.
func (s *Scheduler) scheduleRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return
	}
	if s.retryCancel != nil {
		s.retryCancel()
	}

	if err := s.store.ScheduleRetry(); err != nil {
		slog.Error("error marking retry pending", "error", err)
	}
	s.armRetryLocked()
	slog.Info("retry scheduled", "delay", s.retryDelay)
}

func (s *Scheduler) armRetryLocked() {
	ctx, cancel := context.WithCancel(s.ctx)
	s.retryGen++
	s.retryCancel = cancel

	s.wg.Add(1)
	go s.runRetry(ctx, cancel, s.ctx, s.retryGen, s.clock.NewTimer(s.retryDelay))
}

// deferRetry re-arms a retry that fired while another refresh held the busy
// flag. Nothing is armed if that refresh already succeeded.
func (s *Scheduler) deferRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.retryCancel != nil {
		return
	}

	switch s.store.State() {
	case StateIdle:
		return
	case StateError:
		if err := s.store.ScheduleRetry(); err != nil {
			slog.Error("error marking retry pending", "error", err)
		}
	}
	s.armRetryLocked()
	slog.Info("retry deferred, refresh in progress", "delay", s.retryDelay)
}

func (s *Scheduler) cancelRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retryCancel != nil {
		s.retryCancel()
		s.retryCancel = nil
		s.retryGen++
	}
}

func (s *Scheduler) runRetry(ctx context.Context, cancel context.CancelFunc, base context.Context, gen uint64, timer clockwork.Timer) {
	defer s.wg.Done()
	defer cancel()
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.Chan():
	}

	s.mu.Lock()
	if s.retryGen != gen {
		s.mu.Unlock()
		return
	}
	s.retryCancel = nil
	s.mu.Unlock()

	err := s.Refresh(base, false)
	switch {
	case errors.Is(err, ErrRefreshInProgress):
		s.deferRetry()
	case err != nil:
		slog.Warn("retry refresh did not succeed", "error", err)
	}
}

func (s *Scheduler) goRefreshLocked() {
	base := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Refresh(base, true); err != nil {
			slog.Warn("initial refresh failed", "error", err)
		}
	}()
}

func (s *Scheduler) countRefresh(trigger, outcome string) {
	if s.metrics != nil {
		s.metrics.Refreshes.WithLabelValues(trigger, outcome).Inc()
	}
}

func (s *Scheduler) setGauges(snap models.Snapshot, connected bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.CurrentHazards.WithLabelValues("earthquakes").Set(float64(len(snap.Earthquakes)))
	s.metrics.CurrentHazards.WithLabelValues("alerts").Set(float64(len(snap.Alerts)))
	if connected {
		s.metrics.Connected.Set(1)
	} else {
		s.metrics.Connected.Set(0)
	}
}
