// Package geoutil holds small geometric helpers shared by the document
// model, the admin geofinder and the ingest adapters.
package geoutil

import "math"

const earthRadiusKm = 6371.0

// HaversineDistance returns the great-circle distance between two WGS84
// points in kilometers.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ValidCoord reports whether (lat, lon) are finite and within WGS84 range.
func ValidCoord(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// BoundingBox is an axis-aligned lat/lon envelope.
type BoundingBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Contains reports whether the box contains (lat, lon), inclusive of edges.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(b.MinLat, other.MinLat),
		MinLon: math.Min(b.MinLon, other.MinLon),
		MaxLat: math.Max(b.MaxLat, other.MaxLat),
		MaxLon: math.Max(b.MaxLon, other.MaxLon),
	}
}

// BoxFromPoints computes the bounding box of a set of (lat, lon) pairs.
// Returns the zero box and false if points is empty.
func BoxFromPoints(points [][2]float64) (BoundingBox, bool) {
	if len(points) == 0 {
		return BoundingBox{}, false
	}
	b := BoundingBox{
		MinLat: points[0][0], MaxLat: points[0][0],
		MinLon: points[0][1], MaxLon: points[0][1],
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p[0])
		b.MaxLat = math.Max(b.MaxLat, p[0])
		b.MinLon = math.Min(b.MinLon, p[1])
		b.MaxLon = math.Max(b.MaxLon, p[1])
	}
	return b, true
}
