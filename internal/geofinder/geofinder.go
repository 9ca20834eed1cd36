// Package geofinder implements the in-memory spatial index used for admin
// attachment (spec §4.B): given a point, return the ordered admin chain
// containing it, finest level first.
package geofinder

import (
	"sort"
	"sync/atomic"

	"github.com/golang/geo/s2"
	"github.com/mimirsbrunn/internal/model"
)

// coveringLevel is the s2 cell level used to bucket admins by their
// bounding box. It is coarse enough that a handful of cells cover a
// country-sized admin while still keeping per-cell candidate lists small —
// the same role an R-tree's root levels would play (spec §4.B). Grounded
// on andreiashu-geobed's use of github.com/golang/geo for spatial indexing.
const coveringLevel = 6

// entry wraps one admin in the cell buckets; the buckets are the coarse
// pre-filter before the exact ray-casting test.
type entry struct {
	admin *model.Admin
}

// Finder is built once from the full admin dataset and is read-only for
// the remainder of an ingest (spec §4.B, §5).
type Finder struct {
	cells     map[s2.CellID][]*entry
	all       []*entry
	attempted int64
	unattached int64
}

// New builds a Finder from admins. Admins without a boundary are still
// attachable by other admins but cannot themselves be matched by Attach
// (they carry no geometry to test against).
func New(admins []model.Admin) *Finder {
	f := &Finder{cells: make(map[s2.CellID][]*entry)}
	for i := range admins {
		a := &admins[i]
		e := &entry{admin: a}
		f.all = append(f.all, e)
		if a.Boundary == nil {
			continue
		}
		for _, cellID := range coveringCells(*a.Boundary) {
			f.cells[cellID] = append(f.cells[cellID], e)
		}
	}
	return f
}

// coveringCells returns the coarse s2 cells whose union covers the
// multipolygon's bounding box, used as the coarse spatial bucket.
func coveringCells(mp model.MultiPolygon) []s2.CellID {
	minLat, minLon, maxLat, maxLon := mp.BBox()
	if minLat > maxLat || minLon > maxLon {
		return nil
	}
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(minLat, minLon)).
		AddPoint(s2.LatLngFromDegrees(maxLat, maxLon))
	coverer := &s2.RegionCoverer{MinLevel: coveringLevel, MaxLevel: coveringLevel, MaxCells: 32}
	covering := coverer.Covering(rect)
	return []s2.CellID(covering)
}

// Attach returns the admin chain containing coord, ordered finest level
// first (largest level number), ties broken by smaller polygon area. It
// never fails: an unmatched point yields a nil (empty) chain, and the
// miss is counted for degraded-result logging (spec §4.B).
func (f *Finder) Attach(coord model.Coord) []model.AdminRef {
	atomic.AddInt64(&f.attempted, 1)

	cellID := s2.CellIDFromLatLng(s2.LatLngFromDegrees(coord.Lat, coord.Lon)).Parent(coveringLevel)
	candidates := f.cells[cellID]

	var matched []*model.Admin
	seen := make(map[string]bool)
	for _, e := range candidates {
		if e.admin.Boundary == nil || seen[e.admin.ID] {
			continue
		}
		if e.admin.Boundary.Contains(coord) {
			matched = append(matched, e.admin)
			seen[e.admin.ID] = true
		}
	}

	if len(matched) == 0 {
		atomic.AddInt64(&f.unattached, 1)
		return nil
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Level != matched[j].Level {
			return matched[i].Level > matched[j].Level // finest (largest level) first
		}
		return matched[i].Boundary.Area() < matched[j].Boundary.Area()
	})

	refs := make([]model.AdminRef, len(matched))
	for i, a := range matched {
		refs[i] = a.Ref()
	}
	return refs
}

// Stats reports attachment outcomes for degraded-result logging.
type Stats struct {
	Attempted  int64
	Unattached int64
}

func (f *Finder) Stats() Stats {
	return Stats{
		Attempted:  atomic.LoadInt64(&f.attempted),
		Unattached: atomic.LoadInt64(&f.unattached),
	}
}

// Len reports how many admins were loaded into the Finder.
func (f *Finder) Len() int { return len(f.all) }
