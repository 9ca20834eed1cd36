package geofinder

import (
	"testing"

	"github.com/mimirsbrunn/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minLat, minLon, maxLat, maxLon float64) model.MultiPolygon {
	ring := model.Ring{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
	}
	return model.MultiPolygon{Polygons: []model.Polygon{{Exterior: ring}}}
}

func mustAdmin(t *testing.T, id string, level int, boundary model.MultiPolygon) model.Admin {
	t.Helper()
	a, err := model.NewAdmin(id, id, id, level, model.ZoneCity, nil, &boundary, nil, 1.0)
	require.NoError(t, err)
	return a
}

func TestAttachReturnsFinestFirst(t *testing.T) {
	country := mustAdmin(t, "admin:country", 2, square(40, -5, 51, 10))
	city := mustAdmin(t, "admin:city", 8, square(48.8, 2.2, 48.9, 2.4))

	f := New([]model.Admin{country, city})
	chain := f.Attach(model.Coord{Lat: 48.85, Lon: 2.35})

	require.Len(t, chain, 2)
	assert.Equal(t, "admin:city", chain[0].ID)
	assert.Equal(t, "admin:country", chain[1].ID)
}

func TestAttachMissReturnsEmptyAndCounts(t *testing.T) {
	country := mustAdmin(t, "admin:country", 2, square(40, -5, 51, 10))
	f := New([]model.Admin{country})

	chain := f.Attach(model.Coord{Lat: -33.86, Lon: 151.2}) // Sydney, well outside
	assert.Empty(t, chain)

	stats := f.Stats()
	assert.Equal(t, int64(1), stats.Attempted)
	assert.Equal(t, int64(1), stats.Unattached)
}

func TestAttachTieBreaksBySmallerArea(t *testing.T) {
	big := mustAdmin(t, "admin:big", 8, square(48.0, 2.0, 49.0, 3.0))
	small := mustAdmin(t, "admin:small", 8, square(48.8, 2.3, 48.9, 2.4))

	f := New([]model.Admin{big, small})
	chain := f.Attach(model.Coord{Lat: 48.85, Lon: 2.35})

	require.Len(t, chain, 2)
	assert.Equal(t, "admin:small", chain[0].ID)
}

func TestNewSkipsAdminsWithoutBoundary(t *testing.T) {
	c := model.Coord{Lat: 48.85, Lon: 2.35}
	noBoundary, err := model.NewAdmin("admin:unknown", "Unknown", "Unknown", 8, model.ZoneCity, &c, nil, nil, 1.0)
	require.NoError(t, err)

	f := New([]model.Admin{noBoundary})
	assert.Equal(t, 1, f.Len())
	assert.Empty(t, f.Attach(c))
}
