// Package cosmogony ingests a pre-built administrative hierarchy (as
// produced by the Cosmogony tool) that already carries authoritative
// parent pointers, so it bypasses the Geofinder for its own admin chain
// resolution rather than re-deriving it from geometry (spec §4.F).
package cosmogony

import (
	"context"
	"fmt"

	"github.com/mimirsbrunn/internal/model"
)

// Zone is one node of the decoded hierarchy. ParentID, when non-empty,
// names another Zone.ID already emitted earlier in Iterator order —
// callers are expected to emit parents before children, the same
// top-down order the upstream tool produces.
type Zone struct {
	ID       string
	Name     string
	Level    int
	ZoneType model.ZoneType
	ParentID string
	Boundary model.MultiPolygon
	ZipCodes []string
}

// Iterator yields decoded Zones. JSON/msgpack parsing itself is out of
// scope; callers adapt whatever decoder they use to this contract.
type Iterator interface {
	Next() (Zone, bool)
}

// Ingest builds Admin documents trusting ParentID chains instead of
// point-in-polygon attachment, and returns the built admins so the caller
// can hand them to geofinder.New for subsequent OSM/BANO/NTFS passes.
func Ingest(ctx context.Context, zones Iterator, out chan<- model.Document) ([]model.Admin, error) {
	refsByID := make(map[string]model.AdminRef)
	var built []model.Admin

	var pending []Zone
	for {
		z, ok := zones.Next()
		if !ok {
			break
		}
		pending = append(pending, z)
	}

	for _, z := range pending {
		admin, err := model.NewAdmin(
			fmt.Sprintf("admin:cosmogony:%s", z.ID),
			z.Name, z.Name, z.Level, z.ZoneType, nil, &z.Boundary, z.ZipCodes, 1.0,
		)
		if err != nil {
			continue // malformed source zone, skip rather than abort the whole pass
		}

		if z.ParentID != "" {
			if parentRef, ok := refsByID[z.ParentID]; ok {
				admin.AdministrativeRegions = append(admin.AdministrativeRegions, parentRef)
				if parent, ok := findBuilt(built, parentRef.ID); ok {
					admin.AdministrativeRegions = append(admin.AdministrativeRegions, parent.AdministrativeRegions...)
				}
			}
		}

		refsByID[z.ID] = admin.Ref()
		built = append(built, admin)

		select {
		case out <- admin:
		case <-ctx.Done():
			return built, ctx.Err()
		}
	}

	return built, nil
}

func findBuilt(admins []model.Admin, id string) (model.Admin, bool) {
	for _, a := range admins {
		if a.ID == id {
			return a, true
		}
	}
	return model.Admin{}, false
}
