// Package detector decides which hazards of a fresh snapshot deserve a
// notification.
package detector

import (
	"time"

	"github.com/mr1hm/safespot-alerts/internal/geo"
	"github.com/mr1hm/safespot-alerts/internal/models"
)

// FindNewNearby returns an alert for every hazard that is absent from the
// previous snapshot and lies within radiusKm of the user. A nil previous
// snapshot means every hazard is new. Feed order is kept.
func FindNewNearby(newHazards []models.HazardRecord, previous *models.Snapshot, user models.UserLocation, radiusKm float64, now time.Time) []models.Alert {
	var seen map[string]struct{}
	if previous != nil {
		seen = previous.IDs()
	}

	userLoc := user.Location()
	var alerts []models.Alert
	for _, h := range newHazards {
		if _, ok := seen[h.ID]; ok {
			continue
		}
		if h.Location == nil || !geo.IsNearby(userLoc, *h.Location, radiusKm) {
			continue
		}
		alerts = append(alerts, models.Alert{
			HazardID:    h.ID,
			Hazard:      h,
			Criticality: models.CriticalityFor(h.Type),
			DetectedAt:  now,
		})
	}
	return alerts
}
