package shaper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimirsbrunn/internal/backend"
)

func geocodingOf(t *testing.T, f Feature) map[string]interface{} {
	t.Helper()
	g, ok := f.Properties["geocoding"].(map[string]interface{})
	require.True(t, ok, "properties.geocoding must be a nested object")
	return g
}

func TestShapeHitNestsPropertiesUnderGeocoding(t *testing.T) {
	src, _ := json.Marshal(map[string]interface{}{
		"id":    "addr:20-segur",
		"label": "20 Avenue de Segur (Paris)",
		"name":  "Avenue de Segur",
		"type":  "addr",
		"coord": map[string]float64{"lat": 48.85, "lon": 2.30},
	})

	feature, err := ShapeHit(backend.Hit{ID: "addr:20-segur", Source: src})
	require.NoError(t, err)
	assert.Equal(t, "Feature", feature.Type)
	assert.Equal(t, [2]float64{2.30, 48.85}, feature.Geometry.Coordinates)

	geocoding := geocodingOf(t, feature)
	assert.Equal(t, "20 Avenue de Segur (Paris)", geocoding["label"])
	assert.Equal(t, "house", geocoding["type"])
}

func TestShapeHitMapsDocTypeToGeocodeType(t *testing.T) {
	cases := map[string]string{
		"admin":  "zone",
		"street": "street",
		"addr":   "house",
		"poi":    "poi",
		"stop":   "stop",
	}
	for docType, want := range cases {
		src, _ := json.Marshal(map[string]interface{}{
			"id": "x:1", "label": "x", "name": "x", "type": docType,
			"coord": map[string]float64{"lat": 1, "lon": 1},
		})
		feature, err := ShapeHit(backend.Hit{ID: "x:1", Source: src})
		require.NoError(t, err)
		assert.Equal(t, want, geocodingOf(t, feature)["type"], "doc type %q", docType)
	}
}

func TestShapeHitExtractsAddressFields(t *testing.T) {
	src, _ := json.Marshal(map[string]interface{}{
		"id": "addr:20-segur", "label": "20 Avenue de Segur (Paris)",
		"name": "Avenue de Segur", "type": "addr",
		"coord":        map[string]float64{"lat": 48.85, "lon": 2.30},
		"house_number": "20",
		"street":       map[string]interface{}{"street_name": "Avenue de Segur"},
		"zip_codes":    []string{"75007"},
		"administrative_regions": []map[string]interface{}{
			{"id": "admin:paris", "level": 8, "name": "Paris", "zone_type": "city"},
		},
	})

	feature, err := ShapeHit(backend.Hit{ID: "addr:20-segur", Source: src})
	require.NoError(t, err)
	geocoding := geocodingOf(t, feature)

	assert.Equal(t, "20", geocoding["housenumber"])
	assert.Equal(t, "Avenue de Segur", geocoding["street"])
	assert.Equal(t, "75007", geocoding["postcode"])
	assert.Equal(t, "Paris", geocoding["city"])
	require.Len(t, geocoding["admin"], 1)
}

func TestShapeFeatureCollectionPreservesOrderAndVersion(t *testing.T) {
	mk := func(id string) backend.Hit {
		src, _ := json.Marshal(map[string]interface{}{"id": id, "label": id, "type": "poi", "coord": map[string]float64{"lat": 1, "lon": 1}})
		return backend.Hit{ID: id, Source: src}
	}

	fc, err := ShapeFeatureCollection([]backend.Hit{mk("poi:2"), mk("poi:1")}, "cafe")
	require.NoError(t, err)
	assert.Equal(t, GeocodingVersion, fc.Geocoding.Version)
	assert.Equal(t, "cafe", fc.Geocoding.Query)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "poi:2", geocodingOf(t, fc.Features[0])["id"])
	assert.Equal(t, "poi:1", geocodingOf(t, fc.Features[1])["id"])
}
