// Package geo resolves raw coordinates to named cities.
package geo

import (
	"math"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

const earthRadiusKm = 6371.0

// DefaultRadiusKm is the cutoff beyond which a depot is not attributed to any city.
const DefaultRadiusKm = 25.0

// Distance returns the great-circle distance between two points in kilometers.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NearestCity returns the city closest to the given point, or nil when no city
// lies within radiusKm. Ties keep the first city in input order.
func NearestCity(lat, lon float64, cities []models.City, radiusKm float64) *models.City {
	var nearest *models.City
	best := math.Inf(1)

	for i := range cities {
		d := Distance(lat, lon, cities[i].Lat, cities[i].Lon)
		if d < best {
			best = d
			nearest = &cities[i]
		}
	}

	if nearest == nil || best > radiusKm {
		return nil
	}
	return nearest
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
