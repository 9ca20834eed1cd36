package osm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimirsbrunn/internal/model"
)

type sliceWays struct {
	items []Way
	i     int
}

func (s *sliceWays) Next() (Way, bool) {
	if s.i >= len(s.items) {
		return Way{}, false
	}
	w := s.items[s.i]
	s.i++
	return w, true
}

type sliceNodes struct {
	items []Node
	i     int
}

func (s *sliceNodes) Next() (Node, bool) {
	if s.i >= len(s.items) {
		return Node{}, false
	}
	n := s.items[s.i]
	s.i++
	return n, true
}

type sliceRelations struct {
	items []Relation
	i     int
}

func (s *sliceRelations) Next() (Relation, bool) {
	if s.i >= len(s.items) {
		return Relation{}, false
	}
	r := s.items[s.i]
	s.i++
	return r, true
}

func drain(t *testing.T, out chan model.Document) []model.Document {
	t.Helper()
	close(out)
	var docs []model.Document
	for d := range out {
		docs = append(docs, d)
	}
	return docs
}

func TestIngestClassifiesHighwayAsStreet(t *testing.T) {
	ways := &sliceWays{items: []Way{
		{ID: 1, Nodes: []Node{{Lat: 48.85, Lon: 2.35}, {Lat: 48.86, Lon: 2.36}}, Tags: []Tag{
			{Key: "highway", Value: "residential"}, {Key: "name", Value: "Rue de Rivoli"},
		}},
	}}
	out := make(chan model.Document, 10)

	err := Ingest(context.Background(), Options{ImportWay: true}, nil, ways, nil, nil, out)
	require.NoError(t, err)

	docs := drain(t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, string(model.TypeStreet), docs[0].DocType())
}

func TestIngestClassifiesAmenityWayAsPoi(t *testing.T) {
	ways := &sliceWays{items: []Way{
		{ID: 2, Nodes: []Node{{Lat: 48.85, Lon: 2.35}}, Tags: []Tag{
			{Key: "amenity", Value: "hospital"}, {Key: "name", Value: "Hopital Saint-Louis"},
		}},
	}}
	out := make(chan model.Document, 10)

	err := Ingest(context.Background(), Options{ImportWay: true}, nil, ways, nil, nil, out)
	require.NoError(t, err)

	docs := drain(t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, string(model.TypePoi), docs[0].DocType())
}

func TestIngestNodesEmitsOnlyTaggedPOIs(t *testing.T) {
	nodes := &sliceNodes{items: []Node{
		{ID: 1, Lat: 48.85, Lon: 2.35, Tags: []Tag{{Key: "amenity", Value: "cafe"}, {Key: "name", Value: "Cafe de Flore"}}},
		{ID: 2, Lat: 48.85, Lon: 2.35, Tags: []Tag{{Key: "building", Value: "yes"}}},
	}}
	out := make(chan model.Document, 10)

	err := Ingest(context.Background(), Options{ImportPoi: true}, nil, nil, nodes, nil, out)
	require.NoError(t, err)

	docs := drain(t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, string(model.TypePoi), docs[0].DocType())
}

func TestIngestAdminsFiltersByLevel(t *testing.T) {
	relations := &sliceRelations{items: []Relation{
		{ID: 10, Name: "Paris", Tags: []Tag{{Key: "admin_level", Value: "8"}, {Key: "name", Value: "Paris"}},
			Outer: []model.Ring{{{Lat: 48, Lon: 2}, {Lat: 48, Lon: 3}, {Lat: 49, Lon: 3}, {Lat: 49, Lon: 2}}}},
		{ID: 11, Name: "Ile-de-France", Tags: []Tag{{Key: "admin_level", Value: "4"}, {Key: "name", Value: "Ile-de-France"}},
			Outer: []model.Ring{{{Lat: 47, Lon: 1}, {Lat: 47, Lon: 4}, {Lat: 50, Lon: 4}, {Lat: 50, Lon: 1}}}},
	}}
	out := make(chan model.Document, 10)

	err := Ingest(context.Background(), Options{ImportAdmin: true, Levels: map[int]bool{8: true}}, relations, nil, nil, nil, out)
	require.NoError(t, err)

	docs := drain(t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, "admin:osm:10", docs[0].GetID())
}

func TestNameSimilarityIdenticalIsOne(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("Rue de Rivoli", "Rue de Rivoli"))
	assert.Less(t, nameSimilarity("Rue de Rivoli", "Avenue Foch"), 0.5)
}
