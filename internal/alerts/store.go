// Package alerts holds the live hazard state and drives the refresh cycle.
package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/mr1hm/safespot-alerts/internal/geo"
	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/severity"
)

// Status is a point-in-time view of the store for the API.
type Status struct {
	State        State                `json:"state"`
	Loading      bool                 `json:"loading"`
	Connectivity models.Connectivity  `json:"connectivity"`
	LastError    string               `json:"lastError,omitempty"`
	LastUpdated  time.Time            `json:"lastUpdated"`
	AutoRefresh  bool                 `json:"autoRefresh"`
	Location     *models.UserLocation `json:"location,omitempty"`
	Earthquakes  int                  `json:"earthquakes"`
	Alerts       int                  `json:"alerts"`
}

// Store is the single owner of the in-memory hazard state. Only the refresh
// path writes the snapshot; everything else reads.
type Store struct {
	mu           sync.RWMutex
	state        State
	loading      bool
	snapshot     models.Snapshot
	user         *models.UserLocation
	connectivity models.Connectivity
	lastErr      error
	autoRefresh  bool
	scorer       severity.Scorer
}

func NewStore(scorer severity.Scorer, autoRefresh bool) *Store {
	if scorer == nil {
		scorer = severity.Formula{}
	}
	return &Store{
		state:        StateIdle,
		connectivity: models.ConnectivityConnected,
		autoRefresh:  autoRefresh,
		scorer:       scorer,
	}
}

func (s *Store) transition(e Event) error {
	next, err := Next(s.state, e)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Begin enters loading. The visible loading flag is only raised for
// user-initiated refreshes.
func (s *Store) Begin(userInitiated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(EventRefresh); err != nil {
		return err
	}
	s.loading = userInitiated
	return nil
}

// Succeed commits snap as the current state.
func (s *Store) Succeed(snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(EventSuccess); err != nil {
		return err
	}
	s.loading = false
	s.snapshot = snap
	s.connectivity = models.ConnectivityConnected
	s.lastErr = nil
	return nil
}

// Fail records a failed refresh. The previous snapshot stays visible.
func (s *Store) Fail(cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transition(EventFailure); err != nil {
		return err
	}
	s.loading = false
	s.connectivity = models.ConnectivityOffline
	s.lastErr = cause
	return nil
}

func (s *Store) ScheduleRetry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(EventRetryScheduled)
}

// Restore installs a cached snapshot at startup. Connectivity is offline
// until a live fetch succeeds.
func (s *Store) Restore(cached *models.Snapshot) {
	if cached == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = *cached
	s.connectivity = models.ConnectivityOffline
}

func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Connectivity() models.Connectivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectivity
}

// UserLocation returns a copy of the current location, or nil if unknown.
func (s *Store) UserLocation() *models.UserLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) SetUserLocation(u models.UserLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

func (s *Store) ClearUserLocation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

func (s *Store) AutoRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoRefresh
}

func (s *Store) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoRefresh = enabled
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:        s.state,
		Loading:      s.loading,
		Connectivity: s.connectivity,
		LastUpdated:  s.snapshot.FetchedAt,
		AutoRefresh:  s.autoRefresh,
		Earthquakes:  len(s.snapshot.Earthquakes),
		Alerts:       len(s.snapshot.Alerts),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.user != nil {
		u := *s.user
		st.Location = &u
	}
	return st
}

// NearbyHazards merges both feeds, keeps hazards within the proximity
// radius and scores them. Critical hazards sort first, then by type.
func (s *Store) NearbyHazards(now time.Time) []models.NearbyHazard {
	s.mu.RLock()
	snap := s.snapshot
	scorer := s.scorer
	var user models.UserLocation
	known := s.user != nil
	if known {
		user = *s.user
	}
	s.mu.RUnlock()

	if !known {
		return nil
	}

	userLoc := user.Location()
	var nearby []models.NearbyHazard
	for _, h := range snap.All() {
		if h.Location == nil {
			continue
		}
		d := geo.Distance(userLoc, *h.Location)
		if d > models.ProximityRadiusKm {
			continue
		}

		f := severity.Features{
			DistanceKm:    d,
			Type:          h.Type,
			MagnitudeLike: h.MagnitudeLike,
			ElevationM:    user.Altitude,
			HourOfDay:     hourOf(h.ObservedAt, now),
		}
		score, err := scorer.Score(f)
		if err != nil {
			score = severity.Compute(f)
		}
		h.Severity = score

		nearby = append(nearby, models.NearbyHazard{
			HazardRecord: h,
			DistanceKm:   d,
			Criticality:  models.CriticalityFor(h.Type),
		})
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		ci := nearby[i].Criticality == models.CriticalityCritical
		cj := nearby[j].Criticality == models.CriticalityCritical
		if ci != cj {
			return ci
		}
		return nearby[i].Type < nearby[j].Type
	})
	return nearby
}

func hourOf(observed, now time.Time) int {
	if observed.IsZero() {
		return now.UTC().Hour()
	}
	return observed.UTC().Hour()
}
