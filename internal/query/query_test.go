package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/backend"
	"github.com/mimirsbrunn/internal/config"
)

func newTestPlanner(t *testing.T, searchHandler http.HandlerFunc) (*Planner, *http.Request) {
	t.Helper()
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":{"number":"2.11.0"}}`))
			return
		}
		captured = r
		searchHandler(w, r)
	}))
	t.Cleanup(server.Close)

	be, err := backend.New(config.BackendConfig{ConnectionString: server.URL, NbThreads: 2}, zap.NewNop())
	require.NoError(t, err)

	cfg := config.QueryConfig{
		GeoDecayScaleKm: 50,
		TypeBoosts:      map[string]float64{"house": 1.6, "poi": 1.0},
		DefaultLimit:    10,
		MaxLimit:        50,
	}
	return New(be, "munin", cfg), captured
}

func TestAutocompleteBuildsFunctionScoreQuery(t *testing.T) {
	var body map[string]interface{}
	planner, _ := newTestPlanner(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	})

	_, err := planner.Autocomplete(context.Background(), Request{Text: "segur", Limit: 5})
	require.NoError(t, err)

	require.Contains(t, body, "query")
	query := body["query"].(map[string]interface{})
	assert.Contains(t, query, "function_score")
}

func TestAutocompleteClampsLimitToMax(t *testing.T) {
	var body map[string]interface{}
	planner, _ := newTestPlanner(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	})

	_, err := planner.Autocomplete(context.Background(), Request{Text: "x", Limit: 9999})
	require.NoError(t, err)
	assert.Equal(t, float64(50), body["size"])
}

func TestReverseGeocodeSortsByDistance(t *testing.T) {
	var body map[string]interface{}
	planner, _ := newTestPlanner(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_id":"addr:1"}]}}`))
	})

	result, err := planner.ReverseGeocode(context.Background(), ReverseRequest{Lat: 48.85, Lon: 2.35}, nil)
	require.NoError(t, err)
	require.Len(t, result.Hits.Hits, 1)

	sort := body["sort"].([]interface{})
	require.Len(t, sort, 1)
	entry := sort[0].(map[string]interface{})
	assert.Contains(t, entry, "_geo_distance")
}

func TestGetByIDReturnsNotFoundWhenEmpty(t *testing.T) {
	planner, _ := newTestPlanner(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	})

	_, err := planner.GetByID(context.Background(), "addr:missing")
	assert.Error(t, err)
}
