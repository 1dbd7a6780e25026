package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// feedServer serves the USGS fixture on /usgs and the NWS fixture on /nws.
// The first failN requests to each path get a 503.
type feedServer struct {
	*httptest.Server
	usgsHits atomic.Int32
	nwsHits  atomic.Int32
	usgsFail int32
	nwsFail  int32
	lastUA   atomic.Value
	lastCC   atomic.Value
}

func newFeedServer(t *testing.T, usgsFail, nwsFail int32) *feedServer {
	fs := &feedServer{usgsFail: usgsFail, nwsFail: nwsFail}
	mux := http.NewServeMux()
	mux.HandleFunc("/usgs", func(w http.ResponseWriter, r *http.Request) {
		fs.lastUA.Store(r.Header.Get("User-Agent"))
		fs.lastCC.Store(r.Header.Get("Cache-Control"))
		if fs.usgsHits.Add(1) <= fs.usgsFail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(usgsFixture))
	})
	mux.HandleFunc("/nws", func(w http.ResponseWriter, r *http.Request) {
		if fs.nwsHits.Add(1) <= fs.nwsFail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(nwsFixture))
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestOrchestrator(fs *feedServer, clock clockwork.Clock) *Orchestrator {
	return NewOrchestrator(Options{
		USGSURL:     fs.URL + "/usgs",
		NWSURL:      fs.URL + "/nws",
		UserAgent:   "safespot-test",
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Client:      fs.Client(),
		Clock:       clock,
		Metrics:     observability.NewMetricsForTesting(),
	})
}

func TestFetchWithRetry_SucceedsOnSecondAttempt(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fs := newFeedServer(t, 1, 0)
	o := newTestOrchestrator(fs, fc)
	start := fc.Now()

	type result struct {
		raws []models.RawHazard
		err  error
	}
	done := make(chan result, 1)
	go func() {
		raws, err := o.fetchWithRetry(context.Background(), o.seismic)
		done <- result{raws, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)

	res := <-done
	require.NoError(t, res.err)
	assert.Len(t, res.raws, 2)
	assert.Equal(t, int32(2), fs.usgsHits.Load())
	assert.Equal(t, time.Second, fc.Since(start), "exactly one 1s backoff")
}

func TestFetchWithRetry_ExhaustsAttempts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fs := newFeedServer(t, 100, 0)
	o := newTestOrchestrator(fs, fc)
	start := fc.Now()

	done := make(chan error, 1)
	go func() {
		_, err := o.fetchWithRetry(context.Background(), o.seismic)
		done <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(1), fs.usgsHits.Load())
	fc.Advance(time.Second)

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(2), fs.usgsHits.Load())
	fc.Advance(2 * time.Second)

	err := <-done
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "usgs", netErr.Source)
	assert.Equal(t, 3, netErr.Attempts)
	assert.Equal(t, int32(3), fs.usgsHits.Load())
	assert.Equal(t, 3*time.Second, fc.Since(start), "waits 1s then 2s")
}

func TestFetchWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fs := newFeedServer(t, 100, 0)
	o := newTestOrchestrator(fs, fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := o.fetchWithRetry(ctx, o.seismic)
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	cancel()

	err := <-done
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 1, netErr.Attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchWithRetry_AttemptTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	o := NewOrchestrator(Options{
		USGSURL:     srv.URL,
		NWSURL:      srv.URL,
		Timeout:     100 * time.Millisecond,
		MaxAttempts: 3,
		BackoffBase: 0,
		Client:      srv.Client(),
		Metrics:     observability.NewMetricsForTesting(),
	})

	_, err := o.fetchWithRetry(context.Background(), o.weather)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "nws", netErr.Source)
	assert.Equal(t, 3, netErr.Attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchAll_Success(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fs := newFeedServer(t, 0, 0)
	o := newTestOrchestrator(fs, fc)

	snap, err := o.FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Earthquakes, 2)
	require.Len(t, snap.Alerts, 2)
	assert.Equal(t, models.HazardTypeEarthquake, snap.Earthquakes[0].Type)
	assert.Equal(t, "Magnitude 4.2 Earthquake", snap.Earthquakes[0].EventLabel)
	assert.Equal(t, models.HazardTypeFlood, snap.Alerts[0].Type)
	assert.NotNil(t, snap.Alerts[0].Location)
	assert.Equal(t, models.HazardTypeStorm, snap.Alerts[1].Type)
	assert.Nil(t, snap.Alerts[1].Location, "null geometry has no centroid")
	assert.True(t, snap.FetchedAt.Equal(fc.Now()))

	assert.Equal(t, "safespot-test", fs.lastUA.Load())
	assert.Equal(t, "no-cache", fs.lastCC.Load())
}

func TestFetchAll_OneFeedFailsDiscardsBoth(t *testing.T) {
	fc := clockwork.NewFakeClock()
	fs := newFeedServer(t, 0, 100)
	o := newTestOrchestrator(fs, fc)

	type result struct {
		snap models.Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := o.FetchAll(context.Background())
		done <- result{snap, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(2 * time.Second)

	res := <-done
	var netErr *NetworkError
	require.True(t, errors.As(res.err, &netErr))
	assert.Equal(t, "nws", netErr.Source)
	assert.Zero(t, res.snap.Len())
	assert.Equal(t, int32(1), fs.usgsHits.Load())
}

func TestFetchAll_BadBodyIsAttemptFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	o := NewOrchestrator(Options{
		USGSURL:     srv.URL,
		NWSURL:      srv.URL,
		MaxAttempts: 1,
		Client:      srv.Client(),
		Clock:       clockwork.NewFakeClock(),
	})

	_, err := o.FetchAll(context.Background())
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 1, netErr.Attempts)
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	o := NewOrchestrator(Options{})

	assert.Equal(t, DefaultMaxAttempts, o.maxAttempts)
	assert.Equal(t, DefaultTimeout, o.timeout)
	assert.NotNil(t, o.client)
	assert.NotNil(t, o.clock)
}
