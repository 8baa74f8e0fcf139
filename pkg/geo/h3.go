package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels used for imbalance aggregation.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionStation groups neighbouring stations (~460m edge, ~0.74 km²).
	H3ResolutionStation = 8

	// H3ResolutionZone is used for zone level heat maps (~1.2 km edge, ~5.16 km²).
	H3ResolutionZone = 7
)

// CellFor converts a point to an H3 cell index at the given resolution.
// Invalid input yields the zero cell.
func CellFor(p GeoPoint, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Latitude, p.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// CellCenter returns the center coordinates of an H3 cell.
func CellCenter(cell h3.Cell) GeoPoint {
	latLng, err := cell.LatLng()
	if err != nil {
		return GeoPoint{}
	}
	return GeoPoint{Latitude: latLng.Lat, Longitude: latLng.Lng}
}

// ValidResolution reports whether res is a valid H3 resolution.
func ValidResolution(res int) bool {
	return res >= 0 && res <= 15
}
