// Package query builds and executes the OpenSearch DSL queries behind
// autocomplete and reverse geocoding (spec §4.G). DSL bodies are built as
// unstructured maps the same way the pack's index-manager grounding
// constructs mapping/policy bodies — no query-builder library appears
// anywhere in the examples, so this is hand-rolled by design (see
// DESIGN.md).
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mimirsbrunn/internal/backend"
	"github.com/mimirsbrunn/internal/config"
	apperrors "github.com/mimirsbrunn/internal/pkg/errors"
)

// Focus is an optional point used to bias ranking toward nearby results.
type Focus struct {
	Lat, Lon float64
}

// Request is the validated input to Autocomplete; validation happens in
// httpapi before a Request is constructed (spec §4.I).
type Request struct {
	Text     string
	Limit    int
	Focus    *Focus
	ZoneType string
	PoiType  string
	Shape    map[string]interface{} // decoded GeoJSON geometry, already validated
}

// ReverseRequest is the validated input to ReverseGeocode.
type ReverseRequest struct {
	Lat, Lon float64
	Limit    int
	PerType  bool
}

// Planner composes and executes DSL queries against the backend.
type Planner struct {
	backend    *backend.Adapter
	rootAlias  string
	cfg        config.QueryConfig
}

func New(be *backend.Adapter, rootAlias string, cfg config.QueryConfig) *Planner {
	return &Planner{backend: be, rootAlias: rootAlias, cfg: cfg}
}

// Autocomplete builds the function_score query described in spec §4.G and
// executes it against the root alias (all types). ZoneType and PoiType are
// applied as term filters; they do not narrow the target alias.
func (p *Planner) Autocomplete(ctx context.Context, req Request) (*backend.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}
	if limit > p.cfg.MaxLimit {
		limit = p.cfg.MaxLimit
	}

	body := map[string]interface{}{
		"size":  limit,
		"query": p.functionScoreQuery(req),
	}

	result, err := p.backend.Search(ctx, []string{p.rootAlias}, mustMarshal(body))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Planner) functionScoreQuery(req Request) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"should": []map[string]interface{}{
			{"match_phrase": map[string]interface{}{"label": map[string]interface{}{"query": req.Text, "boost": 3}}},
			{"match_phrase_prefix": map[string]interface{}{"label": map[string]interface{}{"query": req.Text, "boost": 2}}},
			{"match": map[string]interface{}{"label": map[string]interface{}{"query": req.Text, "fuzziness": "AUTO"}}},
		},
		"minimum_should_match": 1,
	}

	var filters []map[string]interface{}
	if req.ZoneType != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"zone_type": req.ZoneType}})
	}
	if req.PoiType != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"poi_type.id": req.PoiType}})
	}
	if req.Shape != nil {
		filters = append(filters, map[string]interface{}{
			"geo_shape": map[string]interface{}{
				"coord": map[string]interface{}{"shape": req.Shape, "relation": "intersects"},
			},
		})
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	functions := []map[string]interface{}{
		{"field_value_factor": map[string]interface{}{"field": "weight", "missing": 1, "modifier": "log1p"}},
	}
	for docType, boost := range p.cfg.TypeBoosts {
		functions = append(functions, map[string]interface{}{
			"filter": map[string]interface{}{"term": map[string]interface{}{"type": docType}},
			"weight": boost,
		})
	}
	if req.Focus != nil {
		functions = append(functions, map[string]interface{}{
			"gauss": map[string]interface{}{
				"coord": map[string]interface{}{
					"origin": map[string]interface{}{"lat": req.Focus.Lat, "lon": req.Focus.Lon},
					"scale":  fmt.Sprintf("%gkm", p.cfg.GeoDecayScaleKm),
					"offset": "0km",
				},
			},
		})
	}

	return map[string]interface{}{
		"function_score": map[string]interface{}{
			"query":      map[string]interface{}{"bool": boolQuery},
			"functions":  functions,
			"score_mode": "sum",
			"boost_mode": "multiply",
		},
	}
}

// ReverseGeocode returns the nearest documents to (lat, lon), sorted by
// distance. When PerType is set and typeAliases is nonempty, it issues one
// size-1 search per alias in typeAliases, one after another, and returns
// the merged hits, one per type; otherwise it issues a single federated
// query across the root alias.
func (p *Planner) ReverseGeocode(ctx context.Context, req ReverseRequest, typeAliases []string) (*backend.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 1
	}

	if !req.PerType || len(typeAliases) == 0 {
		body := p.reverseBody(req, limit)
		return p.backend.Search(ctx, []string{p.rootAlias}, mustMarshal(body))
	}

	merged := &backend.SearchResult{}
	for _, alias := range typeAliases {
		body := p.reverseBody(req, 1)
		result, err := p.backend.Search(ctx, []string{alias}, mustMarshal(body))
		if err != nil {
			continue // a missing per-type alias (no documents of that type yet) is not fatal
		}
		merged.Hits.Hits = append(merged.Hits.Hits, result.Hits.Hits...)
		merged.Hits.Total.Value += result.Hits.Total.Value
	}
	if len(merged.Hits.Hits) == 0 {
		return nil, apperrors.ErrFeatureNotFound
	}
	return merged, nil
}

func (p *Planner) reverseBody(req ReverseRequest, limit int) map[string]interface{} {
	return map[string]interface{}{
		"size": limit,
		"sort": []map[string]interface{}{
			{
				"_geo_distance": map[string]interface{}{
					"coord":        map[string]interface{}{"lat": req.Lat, "lon": req.Lon},
					"order":        "asc",
					"unit":         "m",
					"distance_type": "arc",
				},
			},
		},
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	}
}

// GetByID fetches a single document by its id via a term-query search
// (rather than a direct GET) because the id's owning concrete index isn't
// known to the caller, only the root alias.
func (p *Planner) GetByID(ctx context.Context, id string) (*backend.Hit, error) {
	body := map[string]interface{}{
		"size":  1,
		"query": map[string]interface{}{"term": map[string]interface{}{"id": id}},
	}
	result, err := p.backend.Search(ctx, []string{p.rootAlias}, mustMarshal(body))
	if err != nil {
		return nil, err
	}
	if len(result.Hits.Hits) == 0 {
		return nil, apperrors.ErrFeatureNotFound
	}
	return &result.Hits.Hits[0], nil
}

func mustMarshal(v map[string]interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("query: unreachable marshal failure: %v", err))
	}
	return b
}
