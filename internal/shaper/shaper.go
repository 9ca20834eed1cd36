// Package shaper maps backend hits into GeocodeJSON, the response format
// the HTTP surface returns (spec §4.H).
package shaper

import (
	"encoding/json"
	"fmt"

	"github.com/mimirsbrunn/internal/backend"
)

// GeocodingVersion is the geocoding.version field echoed on every
// response envelope (spec §6).
const GeocodingVersion = "0.1.0"

// Feature is one GeocodeJSON feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON Point.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureCollection is the top-level response envelope.
type FeatureCollection struct {
	Type      string    `json:"type"`
	Geocoding Geocoding `json:"geocoding"`
	Features  []Feature `json:"features"`
}

// Geocoding carries response metadata: the echoed query and the shaper
// version, matching GeocodeJSON's convention of a sibling "geocoding" key.
type Geocoding struct {
	Version string `json:"version"`
	Query   string `json:"query,omitempty"`
}

// sourceDoc is the subset of every document's JSON shape the shaper reads
// directly, regardless of concrete type (spec §3's common fields plus the
// type-specific fields §4.H maps into properties.geocoding).
type sourceDoc struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	ZipCodes              []string   `json:"zip_codes,omitempty"`
	AdministrativeRegions []adminRef `json:"administrative_regions,omitempty"`
	HouseNumber           string     `json:"house_number,omitempty"`
	Street                struct {
		StreetName string `json:"street_name"`
	} `json:"street,omitempty"`
}

type adminRef struct {
	ID       string   `json:"id"`
	Level    int      `json:"level"`
	Name     string   `json:"name"`
	ZoneType string   `json:"zone_type,omitempty"`
	ZipCodes []string `json:"zip_codes,omitempty"`
}

// docTypeToGeocodeType maps the internal document discriminator to the
// GeocodeJSON type vocabulary (spec §6, §4.G, §8 #1/#2).
var docTypeToGeocodeType = map[string]string{
	"admin":  "zone",
	"street": "street",
	"addr":   "house",
	"poi":    "poi",
	"stop":   "stop",
}

func geocodeType(docType string) string {
	if mapped, ok := docTypeToGeocodeType[docType]; ok {
		return mapped
	}
	return docType
}

// city returns the finest city-level admin name, or the finest admin
// overall if none is tagged city, matching model.City's fallback rule.
func city(admins []adminRef) string {
	for _, a := range admins {
		if a.ZoneType == "city" {
			return a.Name
		}
	}
	if len(admins) > 0 {
		return admins[0].Name
	}
	return ""
}

func postcode(zipCodes []string) string {
	if len(zipCodes) > 0 {
		return zipCodes[0]
	}
	return ""
}

// ShapeHit converts one backend hit into a GeocodeJSON Feature. Per-feature
// fields live under properties.geocoding (spec §4.H, §6); the top-level
// envelope's geocoding block set by ShapeFeatureCollection is a distinct,
// outer "geocoding.version"/"geocoding.query" pair.
func ShapeHit(hit backend.Hit) (Feature, error) {
	var doc sourceDoc
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		return Feature{}, fmt.Errorf("shaper: decode hit %s: %w", hit.ID, err)
	}

	admin := make([]map[string]interface{}, 0, len(doc.AdministrativeRegions))
	for _, a := range doc.AdministrativeRegions {
		admin = append(admin, map[string]interface{}{
			"id":        a.ID,
			"level":     a.Level,
			"name":      a.Name,
			"zone_type": a.ZoneType,
		})
	}

	geocoding := map[string]interface{}{
		"id":    doc.ID,
		"type":  geocodeType(doc.Type),
		"label": doc.Label,
		"name":  doc.Name,
	}
	if doc.HouseNumber != "" {
		geocoding["housenumber"] = doc.HouseNumber
	}
	if doc.Street.StreetName != "" {
		geocoding["street"] = doc.Street.StreetName
	}
	if pc := postcode(doc.ZipCodes); pc != "" {
		geocoding["postcode"] = pc
	}
	if c := city(doc.AdministrativeRegions); c != "" {
		geocoding["city"] = c
	}
	if len(admin) > 0 {
		geocoding["admin"] = admin
	}

	return Feature{
		Type:       "Feature",
		Geometry:   Geometry{Type: "Point", Coordinates: [2]float64{doc.Coord.Lon, doc.Coord.Lat}},
		Properties: map[string]interface{}{"geocoding": geocoding},
	}, nil
}

// ShapeFeatureCollection maps every hit in order (order is the ranking
// the Query Planner produced, and must be preserved) into the final
// envelope.
func ShapeFeatureCollection(hits []backend.Hit, query string) (*FeatureCollection, error) {
	features := make([]Feature, 0, len(hits))
	for _, hit := range hits {
		f, err := ShapeHit(hit)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return &FeatureCollection{
		Type:      "FeatureCollection",
		Geocoding: Geocoding{Version: GeocodingVersion, Query: query},
		Features:  features,
	}, nil
}
