package alerts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

var errOffline = errors.New("dial tcp: network is unreachable")

// fakeFetcher returns the queued results in order, then repeats the last.
type fakeFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   atomic.Int32
	gate    chan struct{} // when set, FetchAll blocks until it is closed
	entered chan struct{}
}

type fetchResult struct {
	snap models.Snapshot
	err  error
}

func (f *fakeFetcher) FetchAll(ctx context.Context) (models.Snapshot, error) {
	n := int(f.calls.Add(1))
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return models.Snapshot{}, nil
	}
	i := n - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i].snap, f.results[i].err
}

// memSnapshots records the order of persistence calls.
type memSnapshots struct {
	mu     sync.Mutex
	stored *models.Snapshot
	events []string
	onSave func()
}

func (m *memSnapshots) Load(ctx context.Context) *models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "load")
	if m.stored == nil {
		return nil
	}
	s := *m.stored
	return &s
}

func (m *memSnapshots) Save(ctx context.Context, snap models.Snapshot) {
	if m.onSave != nil {
		m.onSave()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "save")
	m.stored = &snap
}

func (m *memSnapshots) log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []models.Alert
	onCall func()
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, alerts []models.Alert) {
	if r.onCall != nil {
		r.onCall()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alerts...)
}

func (r *recordingDispatcher) sent() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Alert(nil), r.alerts...)
}
