// Package shelters loads the static shelter reference set.
package shelters

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

//go:embed data/shelters.json
var defaultShelters []byte

// Load reads shelters from path, or the embedded default set when path is
// empty.
func Load(path string) ([]models.Shelter, error) {
	data := defaultShelters
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading shelters file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) ([]models.Shelter, error) {
	var shelters []models.Shelter
	if err := json.Unmarshal(data, &shelters); err != nil {
		return nil, fmt.Errorf("error decoding shelters: %w", err)
	}
	for i, s := range shelters {
		if s.ID == "" {
			return nil, fmt.Errorf("shelter %d: id required", i)
		}
		if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
			return nil, fmt.Errorf("shelter %s: coordinates out of range", s.ID)
		}
	}
	return shelters, nil
}
