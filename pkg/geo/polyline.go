package geo

import (
	"errors"
	"math"
	"strings"
)

const polylinePrecision = 1e5

// ErrInvalidPolyline is returned when an encoded polyline is truncated or
// contains characters outside the encoding alphabet.
var ErrInvalidPolyline = errors.New("invalid encoded polyline")

// EncodePolyline encodes points using the encoded polyline algorithm format
// with five decimal places of precision.
func EncodePolyline(points []GeoPoint) string {
	var sb strings.Builder
	var prevLat, prevLng int64

	for _, p := range points {
		lat := int64(math.Round(p.Latitude * polylinePrecision))
		lng := int64(math.Round(p.Longitude * polylinePrecision))

		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return sb.String()
}

// DecodePolyline reverses EncodePolyline.
func DecodePolyline(encoded string) ([]GeoPoint, error) {
	var points []GeoPoint
	var lat, lng int64

	for i := 0; i < len(encoded); {
		dLat, next, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		dLng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lng += dLng
		points = append(points, GeoPoint{
			Latitude:  float64(lat) / polylinePrecision,
			Longitude: float64(lng) / polylinePrecision,
		})
	}

	return points, nil
}

func encodeValue(sb *strings.Builder, v int64) {
	// zigzag so the sign ends up in the lowest bit
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	sb.WriteByte(byte(u + 63))
}

func decodeValue(encoded string, i int) (int64, int, error) {
	var result uint64
	var shift uint

	for {
		if i >= len(encoded) {
			return 0, i, ErrInvalidPolyline
		}
		b := int(encoded[i]) - 63
		i++
		if b < 0 || b > 0x3f {
			return 0, i, ErrInvalidPolyline
		}
		result |= uint64(b&0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return int64(^(result >> 1)), i, nil
	}
	return int64(result >> 1), i, nil
}
