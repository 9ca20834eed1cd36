package model

import (
	"math"

	geo "github.com/kellydunn/golang-geo"
)

// Ring is a closed sequence of WGS84 points (first == last implied, not
// required to be repeated).
type Ring []Coord

func (r Ring) toGeoPolygon() *geo.Polygon {
	points := make([]*geo.Point, len(r))
	for i, c := range r {
		points[i] = geo.NewPoint(c.Lat, c.Lon)
	}
	return geo.NewPolygon(points)
}

// contains runs the ray-casting point-in-polygon test documented as a
// planar approximation acceptable at city scale (spec §4.B).
func (r Ring) contains(c Coord) bool {
	if len(r) < 3 {
		return false
	}
	return r.toGeoPolygon().Contains(geo.NewPoint(c.Lat, c.Lon))
}

// area returns the (unsigned) planar shoelace area of the ring, used only
// to break level ties when ordering admin chains (spec §4.B).
func (r Ring) area() float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].Lon*r[j].Lat - r[j].Lon*r[i].Lat
	}
	return math.Abs(sum) / 2
}

func (r Ring) bbox() (minLat, minLon, maxLat, maxLon float64) {
	minLat, minLon = math.MaxFloat64, math.MaxFloat64
	maxLat, maxLon = -math.MaxFloat64, -math.MaxFloat64
	for _, c := range r {
		minLat = math.Min(minLat, c.Lat)
		maxLat = math.Max(maxLat, c.Lat)
		minLon = math.Min(minLon, c.Lon)
		maxLon = math.Max(maxLon, c.Lon)
	}
	return
}

// Polygon is an exterior ring plus zero or more interior holes.
type Polygon struct {
	Exterior Ring   `json:"exterior"`
	Holes    []Ring `json:"holes,omitempty"`
}

func (p Polygon) contains(c Coord) bool {
	if !p.Exterior.contains(c) {
		return false
	}
	for _, hole := range p.Holes {
		if hole.contains(c) {
			return false
		}
	}
	return true
}

func (p Polygon) area() float64 {
	a := p.Exterior.area()
	for _, hole := range p.Holes {
		a -= hole.area()
	}
	if a < 0 {
		return 0
	}
	return a
}

// MultiPolygon is a closed multipolygon in WGS84, used as an Admin's
// boundary (spec §3).
type MultiPolygon struct {
	Polygons []Polygon `json:"polygons"`
}

// Contains reports whether c is inside or on the multipolygon.
func (m MultiPolygon) Contains(c Coord) bool {
	for _, poly := range m.Polygons {
		if poly.contains(c) {
			return true
		}
	}
	return false
}

// Area sums the area of all member polygons (exterior minus holes).
func (m MultiPolygon) Area() float64 {
	var total float64
	for _, poly := range m.Polygons {
		total += poly.area()
	}
	return total
}

// BBox returns the envelope of the whole multipolygon.
func (m MultiPolygon) BBox() (minLat, minLon, maxLat, maxLon float64) {
	minLat, minLon = math.MaxFloat64, math.MaxFloat64
	maxLat, maxLon = -math.MaxFloat64, -math.MaxFloat64
	for _, poly := range m.Polygons {
		lo1, lo2, hi1, hi2 := poly.Exterior.bbox()
		minLat = math.Min(minLat, lo1)
		minLon = math.Min(minLon, lo2)
		maxLat = math.Max(maxLat, hi1)
		maxLon = math.Max(maxLon, hi2)
	}
	return
}

// RepresentativePoint returns the mean of the vertices of the
// multipolygon's largest exterior ring, used to synthesize Admin.Coord when
// the source provides a boundary but no explicit center point (spec §3).
// The point lies inside a convex ring; for a concave ring it can fall
// outside the boundary.
func (m MultiPolygon) RepresentativePoint() Coord {
	var best Ring
	bestArea := -1.0
	for _, poly := range m.Polygons {
		a := poly.Exterior.area()
		if a > bestArea {
			bestArea = a
			best = poly.Exterior
		}
	}
	if len(best) == 0 {
		return Coord{}
	}
	var sumLat, sumLon float64
	for _, c := range best {
		sumLat += c.Lat
		sumLon += c.Lon
	}
	n := float64(len(best))
	return Coord{Lat: sumLat / n, Lon: sumLon / n}
}
