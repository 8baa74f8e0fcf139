package geo

import "math"

const earthRadiusMeters = 6371000.0

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// DistanceMeters calculates the great-circle distance in meters between two
// points using the haversine formula. The result is not rounded and NaN
// inputs propagate to the result.
func DistanceMeters(a, b GeoPoint) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// Interpolate returns n evenly spaced points on the straight line from a to
// b, both endpoints included. n < 2 yields just the endpoints.
func Interpolate(a, b GeoPoint, n int) []GeoPoint {
	if n < 2 {
		n = 2
	}
	points := make([]GeoPoint, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		points[i] = GeoPoint{
			Latitude:  a.Latitude + (b.Latitude-a.Latitude)*t,
			Longitude: a.Longitude + (b.Longitude-a.Longitude)*t,
		}
	}
	return points
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
