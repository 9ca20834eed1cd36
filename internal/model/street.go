package model

import "fmt"

// Street is a named way attached to zero or more admins (spec §3).
type Street struct {
	Common
	StreetName string `json:"street_name"`
}

// NewStreet constructs a Street. The "at least one admin when a Geofinder
// was available" invariant is the caller's responsibility (the Geofinder
// may legitimately return an empty chain for unattached points), so it is
// not enforced here.
func NewStreet(id, streetName string, coord Coord, admins []AdminRef, weight float64) (Street, error) {
	label := streetName
	if err := validateCommon(id, weight); err != nil {
		return Street{}, fmt.Errorf("model: street %q: %w", id, err)
	}
	if label == "" {
		return Street{}, fmt.Errorf("model: street %q: name must not be empty", id)
	}
	return Street{
		Common: Common{
			ID:                    id,
			Label:                 label,
			Name:                  streetName,
			Coord:                 coord,
			Weight:                weight,
			AdministrativeRegions: admins,
			Type:                  TypeStreet,
		},
		StreetName: streetName,
	}, nil
}

func (s Street) MarshalBackend() ([]byte, error) { return marshalAs(s) }
