package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}
type usgsProperties struct {
	Mag   float64 `json:"mag"`
	Place string  `json:"place"`
	Time  int64   `json:"time"` // unix millis
	Title string  `json:"title"`
	Type  string  `json:"type"` // "earthquake", "quarry blast", ...
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

func parseUSGS(r io.Reader) ([]models.RawHazard, error) {
	var data usgsResponse
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding usgs body: %w", err)
	}

	raws := make([]models.RawHazard, 0, len(data.Features))
	for _, f := range data.Features {
		if len(f.Geometry.Coordinates) < 2 {
			slog.Debug("skipping usgs feature without coordinates", "id", f.ID)
			continue
		}
		observed := time.UnixMilli(f.Properties.Time).UTC()
		raws = append(raws, models.RawHazard{
			ID:            f.ID,
			Source:        models.SourceSeismic,
			SourceTag:     f.Properties.Type,
			Geometry:      orb.Point{f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]},
			Event:         f.Properties.Place,
			Magnitude:     f.Properties.Mag,
			MagnitudeKind: models.MagnitudeKindMagnitude,
			ObservedAt:    observed,
			EffectiveAt:   observed,
		})
	}

	return raws, nil
}
