package geo

import (
	"errors"
	"math"

	"access-matrix-service/internal/domain"
)

// Signed-delta polyline codec at 1e-5 degree precision, as produced by trip
// planner leg geometries.

const polylinePrecision = 1e5

// EncodePolyline encodes a coordinate sequence.
func EncodePolyline(points []domain.Coordinates) string {
	var out []byte
	var prevLat, prevLon int64

	for _, p := range points {
		lat := int64(math.Round(p.Lat * polylinePrecision))
		lon := int64(math.Round(p.Lon * polylinePrecision))
		out = encodeSigned(out, lat-prevLat)
		out = encodeSigned(out, lon-prevLon)
		prevLat, prevLon = lat, lon
	}

	return string(out)
}

// DecodePolyline decodes an encoded coordinate sequence. A truncated value at
// the end of the input is an error.
func DecodePolyline(encoded string) ([]domain.Coordinates, error) {
	var points []domain.Coordinates
	var lat, lon int64

	i := 0
	for i < len(encoded) {
		dLat, n, err := decodeSigned(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n

		dLon, n, err := decodeSigned(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lon += dLon
		points = append(points, domain.Coordinates{
			Lat: float64(lat) / polylinePrecision,
			Lon: float64(lon) / polylinePrecision,
		})
	}

	return points, nil
}

// PathLengthMeters sums haversine segment lengths along a decoded polyline.
func PathLengthMeters(points []domain.Coordinates) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineMeters(points[i-1], points[i])
	}
	return total
}

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func encodeSigned(dst []byte, v int64) []byte {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		dst = append(dst, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(dst, byte(u)+63)
}

func decodeSigned(s string) (int64, int, error) {
	var u uint64
	var shift uint
	for i := 0; i < len(s); i++ {
		c := uint64(s[i]) - 63
		u |= (c & 0x1f) << shift
		if c < 0x20 {
			v := int64(u >> 1)
			if u&1 != 0 {
				v = ^v
			}
			return v, i + 1, nil
		}
		shift += 5
	}
	return 0, 0, errors.New("decode polyline: truncated value")
}
