package shelters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/safespot-alerts/internal/geo"
	"github.com/mr1hm/safespot-alerts/internal/models"
)

func TestLoad_Embedded(t *testing.T) {
	shelters, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, shelters)

	ids := map[string]bool{}
	for _, s := range shelters {
		assert.False(t, ids[s.ID], "duplicate id %s", s.ID)
		ids[s.ID] = true
		assert.NotEmpty(t, s.Name)
		assert.Positive(t, s.Capacity)
	}
}

func TestLoad_NearestToCupertino(t *testing.T) {
	shelters, err := Load("")
	require.NoError(t, err)

	user := &models.UserLocation{Latitude: 37.3230, Longitude: -122.0322}
	nearest, ok := geo.Nearest(user, shelters)
	require.True(t, ok)
	assert.Equal(t, "sh-001", nearest.ID)
	assert.Less(t, nearest.DistanceKm, 1.0)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelters.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"x","name":"X","address":"1 Main St","latitude":1,"longitude":2,"capacity":10,"type":"School"}]`), 0o644))

	shelters, err := Load(path)
	require.NoError(t, err)
	require.Len(t, shelters, 1)
	assert.Equal(t, "X", shelters[0].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":     `{`,
		"missing id":   `[{"name":"X","latitude":1,"longitude":1}]`,
		"bad latitude": `[{"id":"x","latitude":91,"longitude":1}]`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}
