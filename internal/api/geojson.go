package api

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

const geoJSONContentType = "application/geo+json"

// geometryOf prefers the feed's own geometry and falls back to the centroid.
// It returns nil when the hazard cannot be placed on a map.
func geometryOf(h models.HazardRecord) orb.Geometry {
	if h.RawGeometry != nil && h.RawGeometry.Coordinates != nil {
		return h.RawGeometry.Coordinates
	}
	if h.Location != nil {
		return orb.Point{h.Location.Longitude, h.Location.Latitude}
	}
	return nil
}

func hazardFeature(h models.HazardRecord) *geojson.Feature {
	f := geojson.NewFeature(geometryOf(h))
	f.ID = h.ID
	f.Properties = geojson.Properties{
		"id":        h.ID,
		"type":      string(h.Type),
		"source":    string(h.Source),
		"event":     h.EventLabel,
		"magnitude": h.MagnitudeLike,
		"observed":  h.ObservedAt,
		"effective": h.EffectiveAt,
		"ends":      h.EndsAt,
	}
	if h.MagnitudeKind != "" {
		f.Properties["magnitude_kind"] = string(h.MagnitudeKind)
	}
	return f
}

func hazardsToGeoJSON(hazards []models.HazardRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(hazards))
	for _, h := range hazards {
		fc.Append(hazardFeature(h))
	}
	return fc
}

func nearbyToGeoJSON(nearby []models.NearbyHazard) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(nearby))
	for _, n := range nearby {
		// nearby hazards always carry a location
		f := hazardFeature(n.HazardRecord)
		f.Properties["severity"] = n.Severity
		f.Properties["criticality"] = string(n.Criticality)
		f.Properties["distance_km"] = n.DistanceKm
		fc.Append(f)
	}
	return fc
}
