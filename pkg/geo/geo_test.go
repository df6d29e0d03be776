package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

func TestDistance(t *testing.T) {
	// Berlin to Hamburg, roughly 255 km
	d := Distance(52.5200, 13.4050, 53.5511, 9.9937)
	assert.InDelta(t, 255.0, d, 5.0)

	// zero distance to self
	assert.InDelta(t, 0.0, Distance(52.52, 13.405, 52.52, 13.405), 0.0001)
}

func TestNearestCity(t *testing.T) {
	cities := []models.City{
		{ID: "c-1", Name: "Berlin", Lat: 52.5200, Lon: 13.4050},
		{ID: "c-2", Name: "Hamburg", Lat: 53.5511, Lon: 9.9937},
		{ID: "c-3", Name: "Rostock", Lat: 54.0924, Lon: 12.0991},
	}

	tests := []struct {
		name     string
		lat      float64
		lon      float64
		radiusKm float64
		expected string
	}{
		{
			name:     "point inside berlin",
			lat:      52.53,
			lon:      13.40,
			radiusKm: DefaultRadiusKm,
			expected: "Berlin",
		},
		{
			name:     "depot on hamburg outskirts",
			lat:      53.46,
			lon:      9.97,
			radiusKm: DefaultRadiusKm,
			expected: "Hamburg",
		},
		{
			name:     "middle of nowhere outside radius",
			lat:      50.0,
			lon:      20.0,
			radiusKm: DefaultRadiusKm,
			expected: "",
		},
		{
			name:     "wide radius still picks minimum",
			lat:      53.9,
			lon:      11.5,
			radiusKm: 500,
			expected: "Rostock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city := NearestCity(tt.lat, tt.lon, cities, tt.radiusKm)
			if tt.expected == "" {
				assert.Nil(t, city)
				return
			}
			if assert.NotNil(t, city) {
				assert.Equal(t, tt.expected, city.Name)
			}
		})
	}
}

func TestNearestCity_TieKeepsFirst(t *testing.T) {
	cities := []models.City{
		{ID: "c-1", Name: "East Twin", Lat: 50.0, Lon: 10.1},
		{ID: "c-2", Name: "West Twin", Lat: 50.0, Lon: 9.9},
	}

	// probe point equidistant from both twins
	city := NearestCity(50.0, 10.0, cities, DefaultRadiusKm)
	if assert.NotNil(t, city) {
		assert.Equal(t, "East Twin", city.Name)
	}
}

func TestNearestCity_EmptyInput(t *testing.T) {
	assert.Nil(t, NearestCity(50.0, 10.0, nil, DefaultRadiusKm))
}
