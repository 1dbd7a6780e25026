// Package severity scores hazards on a 0-100 scale.
package severity

import (
	"errors"
	"fmt"
	"math"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

var ErrModelNotInitialized = errors.New("severity model not initialized")

const (
	KindFormula = "formula"
	KindNetwork = "network"
)

// Features is the per-hazard input to a Scorer.
type Features struct {
	DistanceKm    float64
	Type          models.HazardType
	MagnitudeLike float64
	ElevationM    float64
	HourOfDay     int
}

type Scorer interface {
	Score(f Features) (int, error)
}

// New returns a scorer of the given kind. A network scorer is trained before
// it is returned.
func New(kind string, seed int64) (Scorer, error) {
	switch kind {
	case "", KindFormula:
		return Formula{}, nil
	case KindNetwork:
		n := NewNetwork(seed)
		n.Train()
		return n, nil
	default:
		return nil, fmt.Errorf("unknown severity model: %q", kind)
	}
}

// Formula is the closed-form reference score. It never fails.
type Formula struct{}

func (Formula) Score(f Features) (int, error) {
	return Compute(f), nil
}

func hazardPriority(t models.HazardType) float64 {
	switch t {
	case models.HazardTypeEarthquake:
		return 1.0
	case models.HazardTypeFlood:
		return 0.8
	case models.HazardTypeStorm:
		return 0.7
	default:
		return 0.5
	}
}

func maxScale(t models.HazardType) float64 {
	switch t {
	case models.HazardTypeEarthquake:
		return 8
	case models.HazardTypeFlood:
		return 5
	case models.HazardTypeStorm:
		return 50
	default:
		return 1
	}
}

// raw returns the unrounded formula value in [0,1].
func raw(f Features) float64 {
	distScore := math.Max(0, 1-f.DistanceKm/20000)
	hazScore := clamp(f.MagnitudeLike/maxScale(f.Type)*hazardPriority(f.Type), 0, 1)
	elevScore := math.Max(0, 1-f.ElevationM/3000)
	timeScore := 0.0
	if f.HourOfDay < 6 || f.HourOfDay >= 18 {
		timeScore = 1
	}
	return 0.30*distScore + 0.30*hazScore + 0.15*elevScore + 0.15*timeScore
}

// Compute evaluates the closed-form severity for f.
func Compute(f Features) int {
	return toScore(raw(f))
}

// toScore maps a [0,1] value onto an integer score in [0,100].
func toScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(clamp(math.Round(100*v), 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
