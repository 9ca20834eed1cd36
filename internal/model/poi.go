package model

import "fmt"

// PoiType is an id+name pair drawn from a closed catalog (spec §4.F's
// OSM tag-to-type rule set).
type PoiType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Poi is a point of interest carrying free key/value tags (spec §3).
type Poi struct {
	Common
	PoiType    PoiType           `json:"poi_type"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NewPoi constructs a Poi.
func NewPoi(id, label, name string, poiType PoiType, coord Coord, admins []AdminRef, properties map[string]string, weight float64) (Poi, error) {
	if err := validateCommon(id, weight); err != nil {
		return Poi{}, fmt.Errorf("model: poi %q: %w", id, err)
	}
	if label == "" {
		label = name
	}
	if label == "" {
		return Poi{}, fmt.Errorf("model: poi %q: label must not be empty", id)
	}
	return Poi{
		Common: Common{
			ID:                    id,
			Label:                 label,
			Name:                  name,
			Coord:                 coord,
			Weight:                weight,
			AdministrativeRegions: admins,
			Type:                  TypePoi,
		},
		PoiType:    poiType,
		Properties: properties,
	}, nil
}

func (p Poi) MarshalBackend() ([]byte, error) { return marshalAs(p) }
