package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/observability"
)

type failingBlobs struct {
	getErr error
	putErr error
}

func (f failingBlobs) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f failingBlobs) Put(context.Context, string, []byte) error  { return f.putErr }

func sampleSnapshot() models.Snapshot {
	observed := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	return models.Snapshot{
		Earthquakes: []models.HazardRecord{{
			ID:            "us7000abcd",
			Type:          models.HazardTypeEarthquake,
			Source:        models.SourceSeismic,
			Location:      &models.Location{Latitude: 37.4, Longitude: -122.0},
			EventLabel:    "Magnitude 4.2 Earthquake",
			MagnitudeLike: 4.2,
			MagnitudeKind: models.MagnitudeKindMagnitude,
			ObservedAt:    observed,
		}},
		Alerts: []models.HazardRecord{{
			ID:         "urn:oid:2.49.0.1.840.0.flood",
			Type:       models.HazardTypeFlood,
			Source:     models.SourceWeather,
			EventLabel: "Flood Warning",
		}},
		FetchedAt: time.Date(2026, 3, 1, 12, 31, 0, 0, time.UTC),
	}
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := NewSnapshotStore(setupTestDB(t), "", observability.NewMetricsForTesting())
	ctx := context.Background()
	want := sampleSnapshot()

	store.Save(ctx, want)
	got := store.Load(ctx)

	require.NotNil(t, got)
	require.Len(t, got.Earthquakes, 1)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, want.Earthquakes[0].ID, got.Earthquakes[0].ID)
	assert.Equal(t, *want.Earthquakes[0].Location, *got.Earthquakes[0].Location)
	assert.Equal(t, want.Earthquakes[0].MagnitudeLike, got.Earthquakes[0].MagnitudeLike)
	assert.True(t, want.Earthquakes[0].ObservedAt.Equal(got.Earthquakes[0].ObservedAt))
	assert.Nil(t, got.Alerts[0].Location)
	assert.Equal(t, models.HazardTypeFlood, got.Alerts[0].Type)
	assert.True(t, want.FetchedAt.Equal(got.FetchedAt))
}

func TestSnapshotStore_UsesDefaultKey(t *testing.T) {
	db := setupTestDB(t)
	store := NewSnapshotStore(db, "", nil)

	store.Save(context.Background(), sampleSnapshot())

	_, err := db.Get(context.Background(), "alertsData")
	assert.NoError(t, err)
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	store := NewSnapshotStore(setupTestDB(t), "", metrics)

	assert.Nil(t, store.Load(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotLoadMisses))
}

func TestSnapshotStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"unknown version", `{"version":7,"earthquakes":[],"alerts":[]}`},
		{"missing version", `{"earthquakes":[],"alerts":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			require.NoError(t, db.Put(context.Background(), "alertsData", []byte(tt.data)))

			store := NewSnapshotStore(db, "", nil)
			assert.Nil(t, store.Load(context.Background()))
		})
	}
}

func TestDecodeSnapshot_ParseError(t *testing.T) {
	_, err := decodeSnapshot("alertsData", []byte(`{"version":2}`))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "alertsData", perr.Key)
}

func TestSnapshotStore_LoadReadError(t *testing.T) {
	store := NewSnapshotStore(failingBlobs{getErr: errors.New("disk gone")}, "", nil)
	assert.Nil(t, store.Load(context.Background()))
}

func TestSnapshotStore_SaveErrorSwallowed(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	store := NewSnapshotStore(failingBlobs{putErr: errors.New("disk full")}, "", metrics)

	store.Save(context.Background(), sampleSnapshot())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotSaveErrors))
}

func TestEncodeSnapshot_EmptyFeedsAreArrays(t *testing.T) {
	data, err := encodeSnapshot(models.Snapshot{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"earthquakes":[]`)
	assert.Contains(t, string(data), `"alerts":[]`)
	assert.Contains(t, string(data), `"version":1`)
}
