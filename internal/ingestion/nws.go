package ingestion

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

// Wind parameters in priority order. Values look like "60 MPH".
var nwsWindParams = []string{"maxWindGust", "windSpeed"}

func parseNWS(r io.Reader) ([]models.RawHazard, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading nws body: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding nws body: %w", err)
	}

	raws := make([]models.RawHazard, 0, len(fc.Features))
	for _, f := range fc.Features {
		props := f.Properties
		id := props.MustString("id", "")
		if id == "" && f.ID != nil {
			id = fmt.Sprint(f.ID)
		}

		raw := models.RawHazard{
			ID:          id,
			Source:      models.SourceWeather,
			Geometry:    f.Geometry,
			Event:       props.MustString("event", ""),
			ObservedAt:  parseNWSTime(props.MustString("sent", "")),
			EffectiveAt: parseNWSTime(props.MustString("effective", "")),
			EndsAt:      parseNWSTime(props.MustString("ends", "")),
		}
		if raw.EndsAt.IsZero() {
			raw.EndsAt = parseNWSTime(props.MustString("expires", ""))
		}
		if raw.ObservedAt.IsZero() {
			raw.ObservedAt = raw.EffectiveAt
		}
		if wind, ok := nwsWind(props); ok {
			raw.Magnitude = wind
			raw.MagnitudeKind = models.MagnitudeKindWindSpeed
		}

		raws = append(raws, raw)
	}

	return raws, nil
}

func parseNWSTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// nwsWind reads the first wind parameter present. Parameters are lists of
// strings in the NWS schema.
func nwsWind(props geojson.Properties) (float64, bool) {
	params, ok := props["parameters"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	for _, name := range nwsWindParams {
		values, ok := params[name].([]interface{})
		if !ok || len(values) == 0 {
			continue
		}
		s, ok := values[0].(string)
		if !ok {
			continue
		}
		if v, ok := leadingNumber(s); ok {
			return v, true
		}
	}
	return 0, false
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
