package models

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ProximityRadiusKm is the fixed radius used for every "nearby" decision.
const ProximityRadiusKm = 50.0

type HazardType string

const (
	HazardTypeEarthquake HazardType = "earthquake"
	HazardTypeFlood      HazardType = "flood"
	HazardTypeWildfire   HazardType = "wildfire"
	HazardTypeTornado    HazardType = "tornado"
	HazardTypeStorm      HazardType = "storm"
	HazardTypeOther      HazardType = "other"
)

// ParseHazardType maps a string onto one of the six categories. Anything
// unrecognised is HazardTypeOther.
func ParseHazardType(s string) HazardType {
	switch t := HazardType(strings.ToLower(strings.TrimSpace(s))); t {
	case HazardTypeEarthquake, HazardTypeFlood, HazardTypeWildfire, HazardTypeTornado, HazardTypeStorm:
		return t
	default:
		return HazardTypeOther
	}
}

type Source string

const (
	SourceSeismic Source = "seismic"
	SourceWeather Source = "weather"
)

type MagnitudeKind string

const (
	MagnitudeKindMagnitude  MagnitudeKind = "magnitude"
	MagnitudeKindWindSpeed  MagnitudeKind = "wind_speed"
	MagnitudeKindWaterDepth MagnitudeKind = "water_depth"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RawHazard is a feed record after decoding but before classification.
type RawHazard struct {
	ID            string
	Source        Source
	SourceTag     string // explicit type tag carried by the feed, if any
	Geometry      orb.Geometry
	Event         string
	Magnitude     float64
	MagnitudeKind MagnitudeKind
	ObservedAt    time.Time
	EffectiveAt   time.Time
	EndsAt        time.Time
}

// HazardRecord is the normalized hazard shared by both feeds. ID is stable
// across polls for the same physical event.
type HazardRecord struct {
	ID            string            `json:"id"`
	Type          HazardType        `json:"type"`
	Source        Source            `json:"source"`
	Location      *Location         `json:"location,omitempty"` // nil when no centroid could be derived
	RawGeometry   *geojson.Geometry `json:"geometry,omitempty"`
	EventLabel    string            `json:"event"`
	MagnitudeLike float64           `json:"magnitude"`
	MagnitudeKind MagnitudeKind     `json:"magnitudeKind,omitempty"`
	ObservedAt    time.Time         `json:"observedAt"`
	EffectiveAt   time.Time         `json:"effective"`
	EndsAt        time.Time         `json:"ends"`
	Severity      int               `json:"severity"`
}

// NearbyHazard is a hazard within the proximity radius of the user, scored
// relative to the user's position.
type NearbyHazard struct {
	HazardRecord
	DistanceKm  float64     `json:"distanceKm"`
	Criticality Criticality `json:"criticality"`
}

type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

func (u UserLocation) Location() Location {
	return Location{Latitude: u.Latitude, Longitude: u.Longitude}
}

type Connectivity string

const (
	ConnectivityConnected Connectivity = "connected"
	ConnectivityOffline   Connectivity = "offline"
)
