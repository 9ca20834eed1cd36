package ntfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimirsbrunn/internal/model"
)

type sliceStopPoints struct {
	items []StopPoint
	i     int
}

func (s *sliceStopPoints) Next() (StopPoint, bool) {
	if s.i >= len(s.items) {
		return StopPoint{}, false
	}
	sp := s.items[s.i]
	s.i++
	return sp, true
}

func TestIngestAggregatesStopPointsIntoOneStopArea(t *testing.T) {
	stopPoints := &sliceStopPoints{items: []StopPoint{
		{ID: "sp:1", StopAreaID: "sa:gare-du-nord", StopAreaName: "Gare du Nord", Lat: 48.880, Lon: 2.355, PhysicalModes: []string{"Metro"}, Code: "A"},
		{ID: "sp:2", StopAreaID: "sa:gare-du-nord", StopAreaName: "Gare du Nord", Lat: 48.881, Lon: 2.356, PhysicalModes: []string{"Rail"}, Code: "B"},
	}}
	out := make(chan model.Document, 10)

	err := Ingest(context.Background(), stopPoints, nil, nil, out)
	require.NoError(t, err)
	close(out)

	var stops []model.Stop
	for d := range out {
		stops = append(stops, d.(model.Stop))
	}
	require.Len(t, stops, 1)
	assert.ElementsMatch(t, []string{"Metro", "Rail"}, stops[0].PhysicalModes)
	assert.ElementsMatch(t, []string{"A", "B"}, stops[0].Codes)
}
