package osm

import (
	"io"

	"github.com/missinglink/gosmparse"

	"github.com/mimirsbrunn/internal/model"
)

// pbfHandler implements gosmparse.OSMReader, buffering every node, way, and
// relation in memory so the result can be replayed through the package's
// iterator interfaces. Grounded on the pack's ariadna OSM importer, which
// drives gosmparse the same way before handing decoded entities to its own
// elasticsearch loader.
type pbfHandler struct {
	nodeCoords map[int64][2]float64
	nodeTags   map[int64][]Tag
	nodes      []Node
	ways       []Way
	relations  []Relation
}

func newPBFHandler() *pbfHandler {
	return &pbfHandler{
		nodeCoords: make(map[int64][2]float64),
		nodeTags:   make(map[int64][]Tag),
	}
}

func (h *pbfHandler) ReadNode(n gosmparse.Node) {
	h.nodeCoords[n.ID] = [2]float64{n.Lat, n.Lon}
	tags := tagsFromMap(n.Tags)
	if len(tags) > 0 {
		h.nodeTags[n.ID] = tags
	}
	if len(tags) > 0 {
		h.nodes = append(h.nodes, Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Tags: tags})
	}
}

func (h *pbfHandler) ReadWay(w gosmparse.Way) {
	nodes := make([]Node, 0, len(w.NodeIDs))
	for _, id := range w.NodeIDs {
		coord, ok := h.nodeCoords[id]
		if !ok {
			continue
		}
		nodes = append(nodes, Node{ID: id, Lat: coord[0], Lon: coord[1], Tags: h.nodeTags[id]})
	}
	if len(nodes) == 0 {
		return
	}
	h.ways = append(h.ways, Way{ID: w.ID, Nodes: nodes, Tags: tagsFromMap(w.Tags)})
}

func (h *pbfHandler) ReadRelation(r gosmparse.Relation) {
	tags := tagsFromMap(r.Tags)
	name := tags.value("name")
	rel := Relation{ID: r.ID, Name: name, Tags: tags}

	wayIndex := make(map[int64]Way, len(h.ways))
	for _, w := range h.ways {
		wayIndex[w.ID] = w
	}
	for _, member := range r.Members {
		if member.Type != gosmparse.WayType {
			continue
		}
		way, ok := wayIndex[member.ID]
		if !ok {
			continue
		}
		ring := make(model.Ring, 0, len(way.Nodes))
		for _, n := range way.Nodes {
			coord, err := model.NewCoord(n.Lat, n.Lon)
			if err != nil {
				continue
			}
			ring = append(ring, coord)
		}
		if len(ring) < 3 {
			continue
		}
		if member.Role == "inner" {
			rel.Inner = append(rel.Inner, ring)
		} else {
			rel.Outer = append(rel.Outer, ring)
		}
	}
	if len(rel.Outer) == 0 {
		return
	}
	h.relations = append(h.relations, rel)
}

type tagList []Tag

func (t tagList) value(key string) string {
	for _, tag := range t {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func tagsFromMap(m map[string]string) tagList {
	if len(m) == 0 {
		return nil
	}
	tags := make(tagList, 0, len(m))
	for k, v := range m {
		tags = append(tags, Tag{Key: k, Value: v})
	}
	return tags
}

// DecodePBF reads an OpenStreetMap PBF extract and returns the node, way,
// and relation iterators Ingest consumes. The whole extract is buffered in
// memory; this is appropriate for the per-dataset regional extracts the
// import CLI targets, not planet-scale files.
func DecodePBF(r io.Reader) (RelationIterator, WayIterator, NodeIterator, error) {
	h := newPBFHandler()
	dec := gosmparse.NewDecoder(r)
	if err := dec.Parse(h); err != nil {
		return nil, nil, nil, err
	}
	return &relationSlice{items: h.relations}, &waySlice{items: h.ways}, &nodeSlice{items: h.nodes}, nil
}

type relationSlice struct {
	items []Relation
	pos   int
}

func (s *relationSlice) Next() (Relation, bool) {
	if s.pos >= len(s.items) {
		return Relation{}, false
	}
	v := s.items[s.pos]
	s.pos++
	return v, true
}

type waySlice struct {
	items []Way
	pos   int
}

func (s *waySlice) Next() (Way, bool) {
	if s.pos >= len(s.items) {
		return Way{}, false
	}
	v := s.items[s.pos]
	s.pos++
	return v, true
}

type nodeSlice struct {
	items []Node
	pos   int
}

func (s *nodeSlice) Next() (Node, bool) {
	if s.pos >= len(s.items) {
		return Node{}, false
	}
	v := s.items[s.pos]
	s.pos++
	return v, true
}
