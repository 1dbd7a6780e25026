// Package classify normalizes raw feed records into hazard records.
package classify

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/safespot-alerts/internal/geo"
	"github.com/mr1hm/safespot-alerts/internal/models"
)

type rule struct {
	hazardType models.HazardType
	keywords   []string
}

// Evaluated in order; the first rule with a matching keyword wins, so a
// "Flood and High Wind Warning" is a flood.
var rules = []rule{
	{models.HazardTypeFlood, []string{"flood", "flash flood", "river flood", "coastal flood"}},
	{models.HazardTypeWildfire, []string{"fire", "red flag", "extreme fire"}},
	{models.HazardTypeTornado, []string{"tornado", "funnel cloud"}},
	{models.HazardTypeStorm, []string{"thunderstorm", "severe weather", "wind", "hail", "storm"}},
}

// Type resolves the hazard category of a raw record.
func Type(raw models.RawHazard) models.HazardType {
	if raw.Source == models.SourceSeismic || strings.EqualFold(raw.SourceTag, string(models.HazardTypeEarthquake)) {
		return models.HazardTypeEarthquake
	}

	event := strings.ToLower(raw.Event)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(event, kw) {
				return r.hazardType
			}
		}
	}
	return models.HazardTypeOther
}

// Classify turns a raw feed record into a HazardRecord. Severity is left at
// zero; it depends on the user's position and is filled in by the nearby view.
func Classify(raw models.RawHazard) models.HazardRecord {
	t := Type(raw)

	h := models.HazardRecord{
		ID:            raw.ID,
		Type:          t,
		Source:        raw.Source,
		Location:      geo.Centroid(raw.Geometry),
		EventLabel:    raw.Event,
		MagnitudeLike: raw.Magnitude,
		MagnitudeKind: raw.MagnitudeKind,
		ObservedAt:    raw.ObservedAt,
		EffectiveAt:   raw.EffectiveAt,
		EndsAt:        raw.EndsAt,
	}
	if raw.Geometry != nil {
		h.RawGeometry = geojson.NewGeometry(raw.Geometry)
	}
	if t == models.HazardTypeEarthquake {
		h.EventLabel = "Magnitude " + strconv.FormatFloat(raw.Magnitude, 'f', -1, 64) + " Earthquake"
		if h.MagnitudeKind == "" {
			h.MagnitudeKind = models.MagnitudeKindMagnitude
		}
	}
	return h
}

// ClassifyAll classifies every record, preserving order.
func ClassifyAll(raws []models.RawHazard) []models.HazardRecord {
	out := make([]models.HazardRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, Classify(r))
	}
	return out
}
