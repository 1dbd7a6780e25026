package geo

import (
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b models.Location) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// IsNearby reports whether target lies within radiusKm of user. The boundary
// is inclusive.
func IsNearby(user, target models.Location, radiusKm float64) bool {
	return Distance(user, target) <= radiusKm
}

// Centroid returns a representative point for a feed geometry.
//
// Polygons use the arithmetic mean of the outer ring's vertices, not the
// area-weighted centroid, so the result can fall outside a non-convex ring.
// MultiPolygons only consider their first polygon. Other geometry kinds
// return nil.
func Centroid(g orb.Geometry) *models.Location {
	switch v := g.(type) {
	case orb.Point:
		return &models.Location{Latitude: v.Lat(), Longitude: v.Lon()}
	case orb.Polygon:
		if len(v) == 0 {
			return nil
		}
		return ringMean(v[0])
	case orb.MultiPolygon:
		if len(v) == 0 || len(v[0]) == 0 {
			return nil
		}
		return ringMean(v[0][0])
	default:
		return nil
	}
}

func ringMean(r orb.Ring) *models.Location {
	if len(r) == 0 {
		return nil
	}
	var latSum, lonSum float64
	for _, p := range r {
		latSum += p.Lat()
		lonSum += p.Lon()
	}
	n := float64(len(r))
	return &models.Location{Latitude: latSum / n, Longitude: lonSum / n}
}

// Nearest returns the closest shelter to user. It reports false when the
// user location is unknown or there are no shelters. Ties go to the first
// shelter in input order.
func Nearest(user *models.UserLocation, shelters []models.Shelter) (models.ShelterDistance, bool) {
	if user == nil || len(shelters) == 0 {
		return models.ShelterDistance{}, false
	}

	from := user.Location()
	best := -1
	bestDist := math.Inf(1)
	for i, s := range shelters {
		d := Distance(from, models.Location{Latitude: s.Latitude, Longitude: s.Longitude})
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return models.ShelterDistance{Shelter: shelters[best], DistanceKm: bestDist}, true
}

// SheltersByDistance filters shelters whose name or address contains query
// (case-insensitive) and orders them nearest first. With no user location the
// input order is kept and distances are zero.
func SheltersByDistance(user *models.UserLocation, shelters []models.Shelter, query string) []models.ShelterDistance {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]models.ShelterDistance, 0, len(shelters))
	for _, s := range shelters {
		if q != "" &&
			!strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.Address), q) {
			continue
		}
		sd := models.ShelterDistance{Shelter: s}
		if user != nil {
			sd.DistanceKm = Distance(user.Location(), models.Location{Latitude: s.Latitude, Longitude: s.Longitude})
		}
		out = append(out, sd)
	}

	if user != nil {
		sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	}
	return out
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
