package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/safespot-alerts/internal/classify"
	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/observability"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second
	DefaultBackoffBase = time.Second
)

// NetworkError is returned when a feed fails every attempt.
type NetworkError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("error fetching %s feed after %d attempts: %v", e.Source, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type Options struct {
	USGSURL     string
	NWSURL      string
	UserAgent   string
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BackoffBase time.Duration // wait before attempt n+1 is BackoffBase*n
	Client      *http.Client
	Clock       clockwork.Clock
	Metrics     *observability.Metrics
}

type feed struct {
	name  string
	url   string
	parse func(io.Reader) ([]models.RawHazard, error)
}

// Orchestrator fetches both hazard feeds and builds a classified snapshot.
type Orchestrator struct {
	seismic     feed
	weather     feed
	userAgent   string
	timeout     time.Duration
	maxAttempts int
	backoffBase time.Duration
	client      *http.Client
	clock       clockwork.Clock
	metrics     *observability.Metrics
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		seismic:     feed{name: "usgs", url: opts.USGSURL, parse: parseUSGS},
		weather:     feed{name: "nws", url: opts.NWSURL, parse: parseNWS},
		userAgent:   opts.UserAgent,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		client:      opts.Client,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.backoffBase < 0 {
		o.backoffBase = DefaultBackoffBase
	}
	if o.client == nil {
		o.client = &http.Client{}
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	return o
}

// FetchAll fetches both feeds concurrently. Either both succeed or the call
// fails with a *NetworkError and nothing is returned.
func (o *Orchestrator) FetchAll(ctx context.Context) (models.Snapshot, error) {
	var seismic, weather []models.RawHazard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raws, err := o.fetchWithRetry(gctx, o.seismic)
		seismic = raws
		return err
	})
	g.Go(func() error {
		raws, err := o.fetchWithRetry(gctx, o.weather)
		weather = raws
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{
		Earthquakes: classify.ClassifyAll(seismic),
		Alerts:      classify.ClassifyAll(weather),
		FetchedAt:   o.clock.Now().UTC(),
	}
	slog.Info("fetched hazard feeds", "earthquakes", len(snap.Earthquakes), "alerts", len(snap.Alerts))
	return snap, nil
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, f feed) ([]models.RawHazard, error) {
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.FetchDuration.WithLabelValues(f.name).Observe(time.Since(start).Seconds())
		}
	}()

	var lastErr error
	attempt := 0
	for attempt < o.maxAttempts {
		attempt++
		raws, err := o.fetchOnce(ctx, f)
		if err == nil {
			o.countAttempt(f.name, "success")
			return raws, nil
		}
		lastErr = err
		o.countAttempt(f.name, "error")
		slog.Warn("feed fetch attempt failed", "source", f.name, "attempt", attempt, "error", err)

		if attempt == o.maxAttempts {
			break
		}
		if !o.sleep(ctx, o.backoffBase*time.Duration(attempt)) {
			lastErr = ctx.Err()
			break
		}
	}

	return nil, &NetworkError{Source: f.name, Attempts: attempt, Err: lastErr}
}

func (o *Orchestrator) fetchOnce(ctx context.Context, f feed) ([]models.RawHazard, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/geo+json")
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	return f.parse(resp.Body)
}

// sleep waits d on the orchestrator clock. It reports false if ctx ended first.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := o.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func (o *Orchestrator) countAttempt(source, outcome string) {
	if o.metrics != nil {
		o.metrics.FetchAttempts.WithLabelValues(source, outcome).Inc()
	}
}
