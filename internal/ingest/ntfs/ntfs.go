// Package ntfs aggregates NTFS/GTFS stop_points into stop_area-level Stop
// documents (spec §4.F). Parsing the NTFS/GTFS zip itself is out of
// scope; callers supply already-decoded StopPoint and Line records.
package ntfs

import (
	"context"
	"fmt"

	"github.com/mimirsbrunn/internal/geofinder"
	"github.com/mimirsbrunn/internal/model"
)

// StopPoint is one decoded physical stop, already associated with its
// parent stop_area id.
type StopPoint struct {
	ID              string
	Name            string
	StopAreaID      string
	StopAreaName    string
	Lat, Lon        float64
	CommercialModes []string
	PhysicalModes   []string
	Code            string
	LineIDs         []string
}

// Line is a decoded public-transport line.
type Line struct {
	ID   string
	Name string
}

// StopPointIterator and LineIterator are the minimal consumption
// contracts this adapter needs.
type StopPointIterator interface {
	Next() (StopPoint, bool)
}

type LineIterator interface {
	Next() (Line, bool)
}

type aggregate struct {
	name            string
	lat, lon        float64
	n               int
	commercialModes map[string]bool
	physicalModes   map[string]bool
	codes           map[string]bool
	lineIDs         map[string]bool
}

// Ingest aggregates stop_points sharing a stop_area id into a single Stop
// document, averaging coordinates across member stop_points and unioning
// their modes/codes/lines (spec §4.F).
func Ingest(ctx context.Context, stopPoints StopPointIterator, lines LineIterator, admins *geofinder.Finder, out chan<- model.Document) error {
	lineNames := make(map[string]string)
	if lines != nil {
		for {
			l, ok := lines.Next()
			if !ok {
				break
			}
			lineNames[l.ID] = l.Name
		}
	}

	areas := make(map[string]*aggregate)
	var order []string

	for {
		sp, ok := stopPoints.Next()
		if !ok {
			break
		}
		agg, seen := areas[sp.StopAreaID]
		if !seen {
			agg = &aggregate{
				name:            sp.StopAreaName,
				commercialModes: map[string]bool{},
				physicalModes:   map[string]bool{},
				codes:           map[string]bool{},
				lineIDs:         map[string]bool{},
			}
			areas[sp.StopAreaID] = agg
			order = append(order, sp.StopAreaID)
		}
		agg.lat = (agg.lat*float64(agg.n) + sp.Lat) / float64(agg.n+1)
		agg.lon = (agg.lon*float64(agg.n) + sp.Lon) / float64(agg.n+1)
		agg.n++
		for _, m := range sp.CommercialModes {
			agg.commercialModes[m] = true
		}
		for _, m := range sp.PhysicalModes {
			agg.physicalModes[m] = true
		}
		if sp.Code != "" {
			agg.codes[sp.Code] = true
		}
		for _, lineID := range sp.LineIDs {
			agg.lineIDs[lineID] = true
		}
	}

	for _, areaID := range order {
		agg := areas[areaID]
		coord, err := model.NewCoord(agg.lat, agg.lon)
		if err != nil {
			continue
		}
		var refs []model.AdminRef
		if admins != nil {
			refs = admins.Attach(coord)
		}

		var lineRefs []model.LineRef
		for id := range agg.lineIDs {
			lineRefs = append(lineRefs, model.LineRef{ID: id, Name: lineNames[id]})
		}

		stop, err := model.NewStop(
			fmt.Sprintf("stop:ntfs:%s", areaID), agg.name, agg.name, coord, refs,
			setToSlice(agg.commercialModes), setToSlice(agg.physicalModes), setToSlice(agg.codes), lineRefs, 1.0,
		)
		if err != nil {
			continue
		}

		select {
		case out <- stop:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func setToSlice(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
