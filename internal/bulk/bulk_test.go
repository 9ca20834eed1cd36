package bulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/backend"
	"github.com/mimirsbrunn/internal/config"
	"github.com/mimirsbrunn/internal/model"
)

func newTestLoader(t *testing.T, opts Options, bulkHandler http.HandlerFunc) *Loader {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":{"number":"2.11.0"}}`))
			return
		}
		bulkHandler(w, r)
	}))
	t.Cleanup(server.Close)

	be, err := backend.New(config.BackendConfig{ConnectionString: server.URL, NbThreads: 4}, zap.NewNop())
	require.NoError(t, err)

	return New(be, opts, zap.NewNop(), prometheus.NewRegistry())
}

func docChannel(n int) <-chan model.Document {
	ch := make(chan model.Document, n)
	for i := 0; i < n; i++ {
		street, _ := model.NewStreet("street:x", "Rue Test", model.Coord{Lat: 1, Lon: 1}, nil, 1.0)
		addr, _ := model.NewAddr("addr:"+string(rune('a'+i)), "1", street, model.Coord{Lat: 1, Lon: 1}, nil, 1.0)
		ch <- addr
	}
	close(ch)
	return ch
}

func TestLoadBatchesAndIndexesAll(t *testing.T) {
	var batches int
	var mu sync.Mutex
	loader := newTestLoader(t, Options{Index: "munin_addr_fr", BatchSize: 3, Workers: 2}, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		batches++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	})

	report, err := loader.Load(context.Background(), docChannel(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.Read)
	assert.Equal(t, int64(7), report.Indexed)
	assert.Equal(t, int64(0), report.Failed)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, batches, 3) // 7 docs / batch size 3 => at least 3 batches
}

func TestLoadRetriesTransientFailureThenSucceeds(t *testing.T) {
	var attempt int
	var mu sync.Mutex
	loader := newTestLoader(t, Options{Index: "munin_addr_fr", BatchSize: 10, Workers: 1, MaxRetries: 3}, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempt++
		n := attempt
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	})

	start := time.Now()
	report, err := loader.Load(context.Background(), docChannel(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Indexed)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLoadCountsPermanentRejectionsAsFailed(t *testing.T) {
	loader := newTestLoader(t, Options{Index: "munin_addr_fr", BatchSize: 10, Workers: 1}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"took":1,"errors":true,"items":[
			{"index":{"_id":"addr:a","status":201}},
			{"index":{"_id":"addr:b","status":400,"error":{"reason":"mapping conflict"}}}
		]}`))
	})

	report, err := loader.Load(context.Background(), docChannel(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Indexed)
	assert.Equal(t, int64(1), report.Failed)
}

func TestEncodeBulkBodyUsesIndexActionForUpsert(t *testing.T) {
	street, _ := model.NewStreet("street:x", "Rue Test", model.Coord{Lat: 1, Lon: 1}, nil, 1.0)
	addr, _ := model.NewAddr("addr:dup", "1", street, model.Coord{Lat: 1, Lon: 1}, nil, 1.0)

	body, err := encodeBulkBody("munin_addr_fr", []model.Document{addr})
	require.NoError(t, err)

	lines := splitLines(body)
	require.Len(t, lines, 2)

	var action map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &action))
	assert.Contains(t, action, "index")
	assert.Equal(t, "addr:dup", action["index"]["_id"])
}

func splitLines(body []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range body {
		if b == '\n' {
			if i > start {
				out = append(out, body[start:i])
			}
			start = i + 1
		}
	}
	return out
}
