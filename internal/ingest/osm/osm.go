// Package osm adapts decoded OpenStreetMap ways, relations, and nodes into
// the unified document model: admin boundaries from relations, streets and
// POIs from ways, standalone POIs from nodes (spec §4.F). Ingest consumes
// already-decoded iterators and knows nothing about PBF; DecodePBF in
// pbf.go builds those iterators from a PBF extract. This is the same
// separation the teacher's repository layer keeps between PostGIS storage
// and the usecase doing enrichment. Classification is grounded on the
// teacher's OSMTagToPOICategory table; proximity merge on
// github.com/agnivade/levenshtein plus geoutil.HaversineDistance, both
// reached for the way andreiashu-geobed and c1288dd6's OSM importer do.
package osm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agnivade/levenshtein"

	"github.com/mimirsbrunn/internal/geofinder"
	"github.com/mimirsbrunn/internal/model"
	"github.com/mimirsbrunn/internal/pkg/geoutil"
)

// Tag is a single OSM key/value pair.
type Tag struct {
	Key   string
	Value string
}

// Node is a decoded OSM node: an id, a coordinate, and its tags.
type Node struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags []Tag
}

// Way is a decoded OSM way: an id, the ordered node coordinates forming
// its geometry, and its tags.
type Way struct {
	ID    int64
	Nodes []Node
	Tags  []Tag
}

// Relation is a decoded OSM relation with member ways already resolved
// into closed rings by the caller's parser.
type Relation struct {
	ID      int64
	Name    string
	Tags    []Tag
	Outer   []model.Ring
	Inner   []model.Ring
}

// NodeIterator, WayIterator, and RelationIterator are the minimal
// consumption contracts the adapter needs; DecodePBF (pbf.go) returns
// implementations backed by a decoded PBF extract, and Ingest itself
// depends only on these interfaces.
type NodeIterator interface {
	Next() (Node, bool)
}

type WayIterator interface {
	Next() (Way, bool)
}

type RelationIterator interface {
	Next() (Relation, bool)
}

// CategoryMapping is the category/subcategory a raw OSM tag resolves to.
type CategoryMapping struct {
	Category    string
	Subcategory string
}

// TagToPOICategory mirrors the teacher's OSM tag table, generalized to a
// flat (key, value) -> mapping lookup independent of any particular
// storage schema.
var TagToPOICategory = map[string]map[string]CategoryMapping{
	"amenity": {
		"pharmacy":   {Category: "healthcare", Subcategory: "pharmacy"},
		"hospital":   {Category: "healthcare", Subcategory: "hospital"},
		"clinic":     {Category: "healthcare", Subcategory: "clinic"},
		"school":     {Category: "education", Subcategory: "school"},
		"university": {Category: "education", Subcategory: "university"},
		"library":    {Category: "education", Subcategory: "library"},
		"restaurant": {Category: "food_drink", Subcategory: "restaurant"},
		"cafe":       {Category: "food_drink", Subcategory: "cafe"},
		"bar":        {Category: "food_drink", Subcategory: "bar"},
		"fast_food":  {Category: "food_drink", Subcategory: "fast_food"},
	},
	"shop": {
		"supermarket":      {Category: "shopping", Subcategory: "supermarket"},
		"convenience":      {Category: "shopping", Subcategory: "convenience"},
		"mall":             {Category: "shopping", Subcategory: "mall"},
		"bakery":           {Category: "shopping", Subcategory: "bakery"},
		"department_store": {Category: "shopping", Subcategory: "department_store"},
	},
	"leisure": {
		"park":          {Category: "leisure", Subcategory: "park"},
		"garden":        {Category: "leisure", Subcategory: "garden"},
		"sports_centre": {Category: "leisure", Subcategory: "sports_centre"},
	},
	"tourism": {
		"attraction": {Category: "leisure", Subcategory: "attraction"},
		"museum":     {Category: "leisure", Subcategory: "museum"},
		"viewpoint":  {Category: "leisure", Subcategory: "viewpoint"},
	},
}

// Options configures one ingest pass.
type Options struct {
	Dataset     string
	Levels      map[int]bool // admin_level values to import; empty set means all
	ImportWay   bool
	ImportAdmin bool
	ImportPoi   bool
	// StreetMergeDistanceMeters bounds how close two way segments must be
	// to be considered the same street for merge-by-proximity.
	StreetMergeDistanceMeters float64
	// StreetNameSimilarity is the minimum normalized Levenshtein
	// similarity (1 - distance/maxlen) for two way names to merge.
	StreetNameSimilarity float64
}

func defaultOptions(o Options) Options {
	if o.StreetMergeDistanceMeters <= 0 {
		o.StreetMergeDistanceMeters = 50
	}
	if o.StreetNameSimilarity <= 0 {
		o.StreetNameSimilarity = 0.85
	}
	return o
}

// Ingest reads relations (admins), ways (streets/POIs), and nodes
// (standalone POIs) and emits Documents on out. Admins are attached via
// admins once built by a prior admin-only pass; this function itself
// never builds the Finder, matching "source -> lazy sequence" staging.
func Ingest(ctx context.Context, opts Options, relations RelationIterator, ways WayIterator, nodes NodeIterator, admins *geofinder.Finder, out chan<- model.Document) error {
	opts = defaultOptions(opts)

	if opts.ImportAdmin && relations != nil {
		if err := ingestAdmins(ctx, opts, relations, out); err != nil {
			return err
		}
	}
	if opts.ImportWay && ways != nil {
		if err := ingestWays(ctx, opts, ways, admins, out); err != nil {
			return err
		}
	}
	if opts.ImportPoi && nodes != nil {
		if err := ingestNodes(ctx, opts, nodes, admins, out); err != nil {
			return err
		}
	}
	return nil
}

func ingestAdmins(ctx context.Context, opts Options, relations RelationIterator, out chan<- model.Document) error {
	for {
		rel, ok := relations.Next()
		if !ok {
			return nil
		}
		level, hasLevel := tagInt(rel.Tags, "admin_level")
		if !hasLevel {
			continue
		}
		if len(opts.Levels) > 0 && !opts.Levels[level] {
			continue
		}

		name := tagValue(rel.Tags, "name")
		if name == "" {
			name = rel.Name
		}
		if name == "" {
			continue
		}

		var polygons []model.Polygon
		for i, outer := range rel.Outer {
			p := model.Polygon{Exterior: outer}
			if i < len(rel.Inner) {
				p.Holes = []model.Ring{rel.Inner[i]}
			}
			polygons = append(polygons, p)
		}
		boundary := model.MultiPolygon{Polygons: polygons}

		admin, err := model.NewAdmin(
			fmt.Sprintf("admin:osm:%d", rel.ID),
			name, name, level, zoneTypeForLevel(level), nil, &boundary, zipCodesFromTags(rel.Tags), 1.0,
		)
		if err != nil {
			continue // a malformed admin boundary is a source-data defect, skip and keep going
		}

		select {
		case out <- admin:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func zoneTypeForLevel(level int) model.ZoneType {
	switch {
	case level <= 2:
		return model.ZoneCountry
	case level <= 6:
		return model.ZoneState
	case level <= 8:
		return model.ZoneCity
	default:
		return model.ZoneSuburb
	}
}

type wayCandidate struct {
	name   string
	coord  model.Coord
	admins []model.AdminRef
	id     int64
}

func ingestWays(ctx context.Context, opts Options, ways WayIterator, admins *geofinder.Finder, out chan<- model.Document) error {
	var streetCandidates []wayCandidate

	for {
		way, ok := ways.Next()
		if !ok {
			break
		}
		if len(way.Nodes) == 0 {
			continue
		}

		if poiType, isPoi := poiTypeForTags(way.Tags); isPoi {
			mid := way.Nodes[len(way.Nodes)/2]
			coord, err := model.NewCoord(mid.Lat, mid.Lon)
			if err != nil {
				continue
			}
			var refs []model.AdminRef
			if admins != nil {
				refs = admins.Attach(coord)
			}
			name := tagValue(way.Tags, "name")
			poi, err := model.NewPoi(
				fmt.Sprintf("poi:osm:way:%d", way.ID),
				name, name, poiType, coord, refs, tagsToProperties(way.Tags), 1.0,
			)
			if err != nil {
				continue
			}
			select {
			case out <- poi:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		name := tagValue(way.Tags, "name")
		if name == "" || !hasHighwayTag(way.Tags) {
			continue
		}
		mid := way.Nodes[len(way.Nodes)/2]
		coord, err := model.NewCoord(mid.Lat, mid.Lon)
		if err != nil {
			continue
		}
		var refs []model.AdminRef
		if admins != nil {
			refs = admins.Attach(coord)
		}
		streetCandidates = append(streetCandidates, wayCandidate{name: name, coord: coord, admins: refs, id: way.ID})
	}

	merged := mergeStreets(streetCandidates, opts.StreetMergeDistanceMeters, opts.StreetNameSimilarity)
	for _, s := range merged {
		street, err := model.NewStreet(fmt.Sprintf("street:osm:%d", s.id), s.name, s.coord, s.admins, 1.0)
		if err != nil {
			continue
		}
		select {
		case out <- street:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// mergeStreets collapses way segments that likely belong to the same
// street: close together and with a near-identical name. Segments beyond
// the distance/similarity thresholds are kept distinct (spec §4.F).
func mergeStreets(candidates []wayCandidate, maxDistanceMeters, minSimilarity float64) []wayCandidate {
	used := make([]bool, len(candidates))
	var merged []wayCandidate

	for i := range candidates {
		if used[i] {
			continue
		}
		group := candidates[i]
		used[i] = true
		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			distKm := geoutil.HaversineDistance(group.coord.Lat, group.coord.Lon, candidates[j].coord.Lat, candidates[j].coord.Lon)
			if distKm*1000 > maxDistanceMeters {
				continue
			}
			if nameSimilarity(group.name, candidates[j].name) < minSimilarity {
				continue
			}
			used[j] = true
		}
		merged = append(merged, group)
	}
	return merged
}

func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

func ingestNodes(ctx context.Context, opts Options, nodes NodeIterator, admins *geofinder.Finder, out chan<- model.Document) error {
	for {
		node, ok := nodes.Next()
		if !ok {
			return nil
		}
		poiType, isPoi := poiTypeForTags(node.Tags)
		if !isPoi {
			continue
		}
		coord, err := model.NewCoord(node.Lat, node.Lon)
		if err != nil {
			continue
		}
		var refs []model.AdminRef
		if admins != nil {
			refs = admins.Attach(coord)
		}
		name := tagValue(node.Tags, "name")
		poi, err := model.NewPoi(
			fmt.Sprintf("poi:osm:node:%d", node.ID),
			name, name, poiType, coord, refs, tagsToProperties(node.Tags), 1.0,
		)
		if err != nil {
			continue
		}
		select {
		case out <- poi:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func poiTypeForTags(tags []Tag) (model.PoiType, bool) {
	for _, t := range tags {
		if byValue, ok := TagToPOICategory[t.Key]; ok {
			if mapping, ok := byValue[t.Value]; ok {
				return model.PoiType{ID: t.Key + ":" + t.Value, Name: mapping.Subcategory}, true
			}
		}
	}
	return model.PoiType{}, false
}

func hasHighwayTag(tags []Tag) bool {
	for _, t := range tags {
		if t.Key == "highway" {
			return true
		}
	}
	return false
}

func tagValue(tags []Tag, key string) string {
	for _, t := range tags {
		if t.Key == key {
			return t.Value
		}
	}
	return ""
}

func tagInt(tags []Tag, key string) (int, bool) {
	v := tagValue(tags, key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func zipCodesFromTags(tags []Tag) []string {
	if v := tagValue(tags, "addr:postcode"); v != "" {
		return []string{v}
	}
	return nil
}

func tagsToProperties(tags []Tag) map[string]string {
	props := make(map[string]string, len(tags))
	for _, t := range tags {
		props[t.Key] = t.Value
	}
	return props
}
