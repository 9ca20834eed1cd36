package model

import "fmt"

// Admin is an administrative region: country through suburb (spec §3).
type Admin struct {
	Common
	Level    int           `json:"level"`
	ZoneType ZoneType      `json:"zone_type"`
	Boundary *MultiPolygon `json:"boundary,omitempty"`
	Insee    string        `json:"insee,omitempty"`
}

// NewAdmin constructs an Admin enforcing the invariant that, when a
// boundary is present, coord lies inside or on it — generating a
// representative point when the caller didn't supply one (spec §3).
func NewAdmin(id, label, name string, level int, zoneType ZoneType, coord *Coord, boundary *MultiPolygon, zipCodes []string, weight float64) (Admin, error) {
	if err := validateCommon(id, weight); err != nil {
		return Admin{}, err
	}
	if label == "" {
		return Admin{}, fmt.Errorf("model: admin %q: label must not be empty", id)
	}
	if level <= 0 {
		return Admin{}, fmt.Errorf("model: admin level must be positive, got %d", level)
	}

	var c Coord
	switch {
	case coord != nil:
		c = *coord
	case boundary != nil:
		c = boundary.RepresentativePoint()
	default:
		return Admin{}, fmt.Errorf("model: admin %q has neither coord nor boundary", id)
	}

	if boundary != nil && coord != nil && !boundary.Contains(c) {
		// The supplied coord disagrees with the boundary; fall back to the
		// boundary's representative point rather than reject the record
		// outright (OSM relation centers are occasionally off). That point
		// is not checked against the boundary again.
		c = boundary.RepresentativePoint()
	}

	return Admin{
		Common: Common{
			ID:       id,
			Label:    label,
			Name:     name,
			Coord:    c,
			ZipCodes: zipCodes,
			Weight:   weight,
			Type:     TypeAdmin,
		},
		Level:    level,
		ZoneType: zoneType,
		Boundary: boundary,
		Insee:    "",
	}, nil
}

// Ref returns the flattened AdminRef snapshot embedded into descendant
// documents (spec §9).
func (a Admin) Ref() AdminRef {
	return AdminRef{
		ID:       a.ID,
		Level:    a.Level,
		Name:     a.Name,
		ZoneType: a.ZoneType,
		ZipCodes: a.ZipCodes,
	}
}

func (a Admin) MarshalBackend() ([]byte, error) { return marshalAs(a) }
