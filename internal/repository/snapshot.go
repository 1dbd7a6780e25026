package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/observability"
)

const (
	DefaultSnapshotKey = "alertsData"
	snapshotVersion    = 1
)

type snapshotDoc struct {
	Version     int                   `json:"version"`
	Earthquakes []models.HazardRecord `json:"earthquakes"`
	Alerts      []models.HazardRecord `json:"alerts"`
	LastUpdated time.Time             `json:"lastUpdated"`
}

// SnapshotStore persists the single most recent snapshot under one key.
// Reads and writes never fail the caller: problems are logged and the
// pipeline carries on with what it has in memory.
type SnapshotStore struct {
	blobs   BlobStore
	key     string
	metrics *observability.Metrics
}

func NewSnapshotStore(blobs BlobStore, key string, metrics *observability.Metrics) *SnapshotStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotStore{blobs: blobs, key: key, metrics: metrics}
}

// Load returns the persisted snapshot, or nil if there is nothing usable.
func (s *SnapshotStore) Load(ctx context.Context) *models.Snapshot {
	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("snapshot read failed", "key", s.key, "error", err)
		}
		s.miss()
		return nil
	}

	snap, err := decodeSnapshot(s.key, data)
	if err != nil {
		slog.Warn("discarding persisted snapshot", "error", err)
		s.miss()
		return nil
	}
	return snap
}

// Save overwrites the persisted snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap models.Snapshot) {
	data, err := encodeSnapshot(snap)
	if err == nil {
		err = s.blobs.Put(ctx, s.key, data)
	}
	if err != nil {
		slog.Error("snapshot save failed", "key", s.key, "error", err)
		if s.metrics != nil {
			s.metrics.SnapshotSaveErrors.Inc()
		}
		return
	}
	slog.Debug("snapshot saved", "key", s.key, "hazards", snap.Len())
}

func (s *SnapshotStore) miss() {
	if s.metrics != nil {
		s.metrics.SnapshotLoadMisses.Inc()
	}
}

func encodeSnapshot(snap models.Snapshot) ([]byte, error) {
	doc := snapshotDoc{
		Version:     snapshotVersion,
		Earthquakes: snap.Earthquakes,
		Alerts:      snap.Alerts,
		LastUpdated: snap.FetchedAt,
	}
	if doc.Earthquakes == nil {
		doc.Earthquakes = []models.HazardRecord{}
	}
	if doc.Alerts == nil {
		doc.Alerts = []models.HazardRecord{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(key string, data []byte) (*models.Snapshot, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Key: key, Err: err}
	}
	if doc.Version != snapshotVersion {
		return nil, &ParseError{Key: key, Err: fmt.Errorf("unsupported version %d", doc.Version)}
	}
	return &models.Snapshot{
		Earthquakes: doc.Earthquakes,
		Alerts:      doc.Alerts,
		FetchedAt:   doc.LastUpdated,
	}, nil
}
