package model

import "fmt"

// LineRef identifies a public-transport line serving a Stop.
type LineRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Stop is a public-transport stop identified at stop_area granularity
// (spec §3, §4.F).
type Stop struct {
	Common
	CommercialModes []string  `json:"commercial_modes,omitempty"`
	PhysicalModes   []string  `json:"physical_modes,omitempty"`
	Codes           []string  `json:"codes,omitempty"`
	Lines           []LineRef `json:"lines,omitempty"`
}

// NewStop constructs a Stop from an aggregated stop_area.
func NewStop(id, label, name string, coord Coord, admins []AdminRef, commercialModes, physicalModes, codes []string, lines []LineRef, weight float64) (Stop, error) {
	if err := validateCommon(id, weight); err != nil {
		return Stop{}, fmt.Errorf("model: stop %q: %w", id, err)
	}
	if label == "" {
		label = name
	}
	if label == "" {
		return Stop{}, fmt.Errorf("model: stop %q: label must not be empty", id)
	}
	return Stop{
		Common: Common{
			ID:                    id,
			Label:                 label,
			Name:                  name,
			Coord:                 coord,
			Weight:                weight,
			AdministrativeRegions: admins,
			Type:                  TypeStop,
		},
		CommercialModes: commercialModes,
		PhysicalModes:   physicalModes,
		Codes:           codes,
		Lines:           lines,
	}, nil
}

func (s Stop) MarshalBackend() ([]byte, error) { return marshalAs(s) }
