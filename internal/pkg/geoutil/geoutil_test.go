package geoutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistanceParisToLondon(t *testing.T) {
	d := HaversineDistance(48.8566, 2.3522, 51.5074, -0.1278)
	assert.InDelta(t, 344, d, 10)
}

func TestHaversineDistanceZero(t *testing.T) {
	assert.Equal(t, 0.0, HaversineDistance(48.85, 2.35, 48.85, 2.35))
}

func TestValidCoord(t *testing.T) {
	assert.True(t, ValidCoord(48.85, 2.35))
	assert.True(t, ValidCoord(-90, -180))
	assert.True(t, ValidCoord(90, 180))
	assert.False(t, ValidCoord(91, 0))
	assert.False(t, ValidCoord(0, 181))
	assert.False(t, ValidCoord(math.NaN(), 0))
}

func TestBoundingBoxContains(t *testing.T) {
	b := BoundingBox{MinLat: 0, MinLon: 0, MaxLat: 10, MaxLon: 10}
	assert.True(t, b.Contains(5, 5))
	assert.True(t, b.Contains(0, 0))
	assert.False(t, b.Contains(11, 5))
}

func TestBoxFromPoints(t *testing.T) {
	b, ok := BoxFromPoints([][2]float64{{1, 1}, {3, -2}, {-1, 5}})
	assert.True(t, ok)
	assert.Equal(t, -1.0, b.MinLat)
	assert.Equal(t, 3.0, b.MaxLat)
	assert.Equal(t, -2.0, b.MinLon)
	assert.Equal(t, 5.0, b.MaxLon)

	_, ok = BoxFromPoints(nil)
	assert.False(t, ok)
}
