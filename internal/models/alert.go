package models

import "time"

type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityModerate Criticality = "moderate"
)

// CriticalityFor is the coarse tier of a hazard type, independent of the
// numeric severity score.
func CriticalityFor(t HazardType) Criticality {
	switch t {
	case HazardTypeEarthquake, HazardTypeWildfire, HazardTypeTornado:
		return CriticalityCritical
	default:
		return CriticalityModerate
	}
}

// Alert is a new hazard near the user that is worth a notification.
type Alert struct {
	HazardID    string
	Hazard      HazardRecord
	Criticality Criticality
	DetectedAt  time.Time
}
