// Package model defines the unified document schema shared by every
// ingested geographic record: Admin, Street, Addr, Poi and Stop (spec §3).
package model

import (
	"fmt"

	"github.com/mimirsbrunn/internal/pkg/geoutil"
)

// Type is the schema discriminator carried by every document so the
// Result Shaper can dispatch without dynamic type assertions.
type Type string

const (
	TypeAdmin  Type = "admin"
	TypeStreet Type = "street"
	TypeAddr   Type = "addr"
	TypePoi    Type = "poi"
	TypeStop   Type = "stop"
)

// Coord is a WGS84 point. NewCoord validates finiteness and range; a Coord
// built as a struct literal is not checked.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewCoord validates finiteness and WGS84 range (spec §3).
func NewCoord(lat, lon float64) (Coord, error) {
	if !geoutil.ValidCoord(lat, lon) {
		return Coord{}, fmt.Errorf("model: invalid coordinate (%v, %v)", lat, lon)
	}
	return Coord{Lat: lat, Lon: lon}, nil
}

// AdminRef is the flattened snapshot of an admin embedded in every
// document's administrative_regions list, avoiding the cyclic live
// reference the original schema would otherwise require (spec §9).
type AdminRef struct {
	ID       string   `json:"id"`
	Level    int      `json:"level"`
	Name     string   `json:"name"`
	ZoneType ZoneType `json:"zone_type,omitempty"`
	ZipCodes []string `json:"zip_codes,omitempty"`
}

// ZoneType enumerates administrative zone kinds (spec §3).
type ZoneType string

const (
	ZoneCountry     ZoneType = "country"
	ZoneState       ZoneType = "state"
	ZoneRegion      ZoneType = "region"
	ZoneDepartment  ZoneType = "department"
	ZoneCity        ZoneType = "city"
	ZoneCityDistrict ZoneType = "city_district"
	ZoneSuburb      ZoneType = "suburb"
)

// Common holds the fields present on every indexed document type.
type Common struct {
	ID                    string     `json:"id"`
	Label                 string     `json:"label"`
	Name                  string     `json:"name"`
	Coord                 Coord      `json:"coord"`
	ZipCodes              []string   `json:"zip_codes,omitempty"`
	Weight                float64    `json:"weight"`
	AdministrativeRegions []AdminRef `json:"administrative_regions,omitempty"`
	Type                  Type       `json:"type"`
}

// DocType satisfies the Document interface.
func (c Common) DocType() string { return string(c.Type) }

// GetID satisfies Document.
func (c Common) GetID() string { return c.ID }

func validateCommon(id string, weight float64) error {
	if id == "" {
		return fmt.Errorf("model: id must not be empty")
	}
	if weight < 0 {
		return fmt.Errorf("model: weight must be nonnegative, got %v", weight)
	}
	return nil
}
