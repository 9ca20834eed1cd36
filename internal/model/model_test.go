package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minLat, minLon, maxLat, maxLon float64) MultiPolygon {
	ring := Ring{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
	}
	return MultiPolygon{Polygons: []Polygon{{Exterior: ring}}}
}

func TestNewCoordRejectsOutOfRange(t *testing.T) {
	_, err := NewCoord(91, 0)
	assert.Error(t, err)
	_, err = NewCoord(0, 181)
	assert.Error(t, err)
	c, err := NewCoord(48.85, 2.35)
	require.NoError(t, err)
	assert.Equal(t, 48.85, c.Lat)
}

func TestNewAdminGeneratesRepresentativePointWhenMissing(t *testing.T) {
	boundary := square(48.0, 2.0, 49.0, 3.0)
	a, err := NewAdmin("admin:paris", "Paris", "Paris", 8, ZoneCity, nil, &boundary, nil, 1.0)
	require.NoError(t, err)
	assert.True(t, boundary.Contains(a.Coord))
}

func TestNewAdminFallsBackWhenSuppliedCoordOutsideBoundary(t *testing.T) {
	boundary := square(48.0, 2.0, 49.0, 3.0)
	bad := Coord{Lat: 0, Lon: 0}
	a, err := NewAdmin("admin:paris", "Paris", "Paris", 8, ZoneCity, &bad, &boundary, nil, 1.0)
	require.NoError(t, err)
	assert.True(t, boundary.Contains(a.Coord))
}

func TestNewAdminRejectsNonPositiveLevel(t *testing.T) {
	c := Coord{Lat: 48.85, Lon: 2.35}
	_, err := NewAdmin("admin:x", "X", "X", 0, ZoneCity, &c, nil, nil, 1.0)
	assert.Error(t, err)
}

func TestComposeAddrLabelIdempotent(t *testing.T) {
	admins := []AdminRef{{ID: "admin:paris", Level: 8, Name: "Paris", ZoneType: ZoneCity}}
	label := ComposeAddrLabel("20", "Avenue de Segur", admins)
	assert.Equal(t, "20 Avenue de Segur (Paris)", label)

	// Rebuilding from the stored parts yields the same label (spec §8).
	again := ComposeAddrLabel("20", "Avenue de Segur", admins)
	assert.Equal(t, label, again)
}

func TestNewAddrComposesLabel(t *testing.T) {
	street, err := NewStreet("street:segur", "Avenue de Segur", Coord{Lat: 48.85, Lon: 2.30},
		[]AdminRef{{ID: "admin:paris", Level: 8, Name: "Paris", ZoneType: ZoneCity}}, 1.0)
	require.NoError(t, err)

	addr, err := NewAddr("addr:20-segur", "20", street, Coord{Lat: 48.85, Lon: 2.30}, []string{"75007"}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, "20 Avenue de Segur (Paris)", addr.Label)
	assert.Equal(t, TypeAddr, addr.Type)
}

func TestDocumentMarshalRoundTrip(t *testing.T) {
	street, err := NewStreet("street:segur", "Avenue de Segur", Coord{Lat: 48.85, Lon: 2.30}, nil, 1.0)
	require.NoError(t, err)
	addr, err := NewAddr("addr:20-segur", "20", street, Coord{Lat: 48.85, Lon: 2.30}, nil, 1.0)
	require.NoError(t, err)

	raw, err := addr.MarshalBackend()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"addr:20-segur"`)
}

func TestMultiPolygonAreaExcludesHoles(t *testing.T) {
	outer := Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	hole := Ring{{4, 4}, {4, 6}, {6, 6}, {6, 4}}
	mp := MultiPolygon{Polygons: []Polygon{{Exterior: outer, Holes: []Ring{hole}}}}
	assert.InDelta(t, 96, mp.Area(), 1)
	assert.False(t, mp.Contains(Coord{Lat: 5, Lon: 5}))
	assert.True(t, mp.Contains(Coord{Lat: 1, Lon: 1}))
}
