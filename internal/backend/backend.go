// Package backend wraps an OpenSearch-compatible search engine behind the
// narrow surface the rest of the pipeline needs: index lifecycle, alias
// management, bulk ingestion, and search (spec §4.C). Grounded on the
// OpenSearch client pattern used for bulk indexing and on
// f84825c0's index-manager client for alias batch updates.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/config"
	apperrors "github.com/mimirsbrunn/internal/pkg/errors"
)

// Adapter is the sole point of contact with the search engine. Every
// method classifies engine failures into transient or permanent AppErrors
// so callers (Bulk Loader, Index Manager, Query Planner) can decide
// whether to retry (spec §7).
type Adapter struct {
	client *opensearch.Client
	log    *zap.Logger
	sem    chan struct{} // bounds concurrent in-flight requests to cfg.NbThreads
}

// New dials the backend and verifies connectivity, the way the teacher's
// repository constructors probe the database before returning.
func New(cfg config.BackendConfig, log *zap.Logger) (*Adapter, error) {
	hosts := strings.Split(cfg.ConnectionString, ",")
	osCfg := opensearch.Config{
		Addresses: hosts,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}
	if cfg.AuthToken != "" {
		osCfg.Header = http.Header{"Authorization": []string{"Bearer " + cfg.AuthToken}}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("backend: create client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperrors.ErrBackendUnreachable.WithDetails(map[string]interface{}{"status": res.StatusCode})
	}

	threads := cfg.NbThreads
	if threads <= 0 {
		threads = 1
	}

	return &Adapter{
		client: client,
		log:    log,
		sem:    make(chan struct{}, threads),
	}, nil
}

func (a *Adapter) acquire(ctx context.Context) error {
	select {
	case a.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) release() { <-a.sem }

// classify turns a raw *opensearchapi.Response error condition into the
// taxonomy's transient/permanent split: 429 and 5xx are transient (worth
// retrying), everything else is a permanent rejection of the request.
func classify(statusCode int, body string) error {
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return apperrors.ErrBackendUnreachable.WithDetails(map[string]interface{}{
			"status": statusCode,
			"body":   body,
		})
	}
	return apperrors.ErrBackendPermanent.WithDetails(map[string]interface{}{
		"status": statusCode,
		"body":   body,
	})
}

// CreateIndex creates a concrete index with the given mapping/settings body.
func (a *Adapter) CreateIndex(ctx context.Context, name string, body []byte) error {
	if err := a.acquire(ctx); err != nil {
		return err
	}
	defer a.release()

	req := opensearchapi.IndicesCreateRequest{Index: name, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classify(res.StatusCode, res.String())
	}
	return nil
}

// DeleteIndex removes a concrete index, used during Cleanup (spec §4.D).
func (a *Adapter) DeleteIndex(ctx context.Context, name string) error {
	if err := a.acquire(ctx); err != nil {
		return err
	}
	defer a.release()

	req := opensearchapi.IndicesDeleteRequest{Index: []string{name}}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classify(res.StatusCode, res.String())
	}
	return nil
}

// Refresh forces a refresh on name(s); the Index Manager calls it in
// MarkReady, before Publish, so newly indexed documents are searchable by
// the time the aliases move.
func (a *Adapter) Refresh(ctx context.Context, names ...string) error {
	if err := a.acquire(ctx); err != nil {
		return err
	}
	defer a.release()

	req := opensearchapi.IndicesRefreshRequest{Index: names}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classify(res.StatusCode, res.String())
	}
	return nil
}

// AliasAction is one add/remove step in an UpdateAliases batch, the unit the
// Index Manager composes atomic cutovers from (spec §4.D).
type AliasAction struct {
	Add    *AliasRef `json:"add,omitempty"`
	Remove *AliasRef `json:"remove,omitempty"`
}

type AliasRef struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

// UpdateAliases submits a batch of alias actions atomically: either all
// actions apply or none do, which is what makes alias cutover atomic from
// the client's perspective (spec §4.D).
func (a *Adapter) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	if err := a.acquire(ctx); err != nil {
		return err
	}
	defer a.release()

	payload, err := json.Marshal(map[string]interface{}{"actions": actions})
	if err != nil {
		return fmt.Errorf("backend: marshal alias actions: %w", err)
	}

	req := opensearchapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(payload)}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classify(res.StatusCode, res.String())
	}
	return nil
}

// ListAliases returns alias -> concrete index names currently bound,
// filtered to aliases matching prefix.
func (a *Adapter) ListAliases(ctx context.Context, prefix string) (map[string][]string, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	req := opensearchapi.CatAliasesRequest{Format: "json"}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, classify(res.StatusCode, res.String())
	}

	var rows []struct {
		Alias string `json:"alias"`
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("backend: decode cat/aliases: %w", err)
	}

	out := make(map[string][]string)
	for _, r := range rows {
		if prefix != "" && !strings.HasPrefix(r.Alias, prefix) {
			continue
		}
		out[r.Alias] = append(out[r.Alias], r.Index)
	}
	return out, nil
}

// BulkItemError is one failed item from a Bulk call, reported back to the
// Bulk Loader for typed error counting (spec §4.E).
type BulkItemError struct {
	ID     string
	Status int
	Reason string
}

// BulkResult reports the outcome of one Bulk call.
type BulkResult struct {
	Took   int
	Errors []BulkItemError
}

// Bulk submits a pre-encoded NDJSON bulk body (action+doc line pairs) and
// reports per-item failures without treating them as a call-level error —
// a partial bulk failure is a data problem, not a backend outage
// (spec §7: Source vs Transient/Permanent distinction).
func (a *Adapter) Bulk(ctx context.Context, body []byte) (*BulkResult, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	req := opensearchapi.BulkRequest{Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, classify(res.StatusCode, res.String())
	}

	var parsed struct {
		Took   int  `json:"took"`
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("backend: decode bulk response: %w", err)
	}

	result := &BulkResult{Took: parsed.Took}
	if parsed.Errors {
		for _, item := range parsed.Items {
			for _, action := range item {
				if action.Error != nil {
					reason := action.Error.Reason
					result.Errors = append(result.Errors, BulkItemError{
						ID:     action.ID,
						Status: action.Status,
						Reason: reason,
					})
				}
			}
		}
	}
	return result, nil
}

// Search executes a raw DSL query body against targets (aliases or
// concrete indices) and returns the decoded hits.
func (a *Adapter) Search(ctx context.Context, targets []string, body []byte) (*SearchResult, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, err
	}
	defer a.release()

	req := opensearchapi.SearchRequest{
		Index: targets,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, apperrors.ErrBackendUnreachable.WithCause(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, classify(res.StatusCode, res.String())
	}

	var parsed SearchResult
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("backend: decode search response: %w", err)
	}
	return &parsed, nil
}

// SearchResult mirrors the subset of the engine's search response the
// Query Planner / Result Shaper need.
type SearchResult struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// Hit is one matched document, kept as raw Source bytes so the shaper can
// unmarshal into the exact document type it expects.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
	Sort   []interface{}   `json:"sort,omitempty"`
}

// inFlight reports how many requests are currently occupying the adapter's
// concurrency semaphore. Nothing in the repository calls it.
func (a *Adapter) inFlight() int { return len(a.sem) }
