package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/config"
	apperrors "github.com/mimirsbrunn/internal/pkg/errors"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	infoHandled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" && !infoHandled {
			infoHandled = true
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":{"number":"2.11.0"}}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	a, err := New(config.BackendConfig{ConnectionString: server.URL, NbThreads: 2}, zap.NewNop())
	require.NoError(t, err)
	return a, server
}

func TestNewFailsWhenBackendUnreachable(t *testing.T) {
	_, err := New(config.BackendConfig{ConnectionString: "http://127.0.0.1:1", NbThreads: 1}, zap.NewNop())
	assert.Error(t, err)
}

func TestBulkReportsPerItemErrorsWithoutFailingTheCall(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"took": 3,
			"errors": true,
			"items": [
				{"index": {"_id": "ok-1", "status": 201}},
				{"index": {"_id": "bad-1", "status": 409, "error": {"reason": "version conflict"}}}
			]
		}`))
	})

	result, err := a.Bulk(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad-1", result.Errors[0].ID)
	assert.Equal(t, 409, result.Errors[0].Status)
}

func TestClassifyTreatsTooManyRequestsAsRetryable(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`rate limited`))
	})

	_, err := a.Bulk(context.Background(), []byte(`{}`))
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.True(t, appErr.IsRetryable())
}

func TestSearchDecodesHits(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hits": {
				"total": {"value": 1},
				"hits": [{"_index": "munin_addr", "_id": "addr:1", "_score": 1.5, "_source": {"label": "20 Avenue de Segur"}}]
			}
		}`))
	})

	result, err := a.Search(context.Background(), []string{"munin_addr"}, []byte(`{}`))
	require.NoError(t, err)
	require.Len(t, result.Hits.Hits, 1)
	assert.Equal(t, "addr:1", result.Hits.Hits[0].ID)
}

func TestUpdateAliasesSendsBatch(t *testing.T) {
	var gotPath string
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"acknowledged":true}`))
	})

	err := a.UpdateAliases(context.Background(), []AliasAction{
		{Add: &AliasRef{Index: "munin_addr_fr_20260101T000000", Alias: "munin_addr_fr"}},
		{Remove: &AliasRef{Index: "munin_addr_fr_20251201T000000", Alias: "munin_addr_fr"}},
	})
	require.NoError(t, err)
	assert.Contains(t, gotPath, "_aliases")
}
