// Package bulk implements the streaming batch loader that turns a sequence
// of documents into bounded-size Bulk calls against the backend, with
// retry and typed failure counting (spec §4.E). The submitter pool pattern
// is grounded on the teacher's worker package (bounded concurrency with a
// shared stop signal); batching and retry are grounded on the
// bulk-loading examples in the pack's other_examples set.
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mimirsbrunn/internal/backend"
	"github.com/mimirsbrunn/internal/model"
)

const (
	defaultBatchSize  = 1000
	defaultBatchBytes = 10 * 1024 * 1024
	defaultWorkers    = 4
	defaultMaxRetries = 5
)

// Options configures a Loader; zero values fall back to the defaults
// above.
type Options struct {
	Index               string
	BatchSize           int
	BatchBytes          int64
	Workers             int
	MaxRetries          int
	ErrorRatioThreshold float64 // abort once failed/total exceeds this; 0 disables
}

// ItemError is one document's failure to index, tagged with a reason
// class for the counters.
type ItemError struct {
	ID     string
	Reason string
}

// Report summarizes a completed Load call. It is only safe to read after
// Load has returned — while a load is in flight the counters live in a
// reportAccumulator instead, since Options.Workers submitter goroutines
// and the single batcher goroutine update them concurrently.
type Report struct {
	Read    int64
	Indexed int64
	Failed  int64
	Errors  []ItemError
}

// reportAccumulator holds the mutable state a Load call's goroutines
// share: plain int64 counters would race (the batcher increments Read and
// marshal-failure Failed counts while Options.Workers submitters
// concurrently increment Indexed/Failed and append to Errors), so counts
// use atomic.Int64 and the slice is guarded by a mutex.
type reportAccumulator struct {
	read    atomic.Int64
	indexed atomic.Int64
	failed  atomic.Int64

	mu     sync.Mutex
	errors []ItemError
}

func (a *reportAccumulator) addError(e ItemError) {
	a.mu.Lock()
	a.errors = append(a.errors, e)
	a.mu.Unlock()
}

func (a *reportAccumulator) report() *Report {
	a.mu.Lock()
	errs := append([]ItemError(nil), a.errors...)
	a.mu.Unlock()
	return &Report{
		Read:    a.read.Load(),
		Indexed: a.indexed.Load(),
		Failed:  a.failed.Load(),
		Errors:  errs,
	}
}

// Loader batches, submits, retries, and counts the documents it is fed.
type Loader struct {
	backend *backend.Adapter
	log     *zap.Logger
	opts    Options

	indexedCounter prometheus.Counter
	failedCounter  *prometheus.CounterVec
}

func New(be *backend.Adapter, opts Options, log *zap.Logger, reg prometheus.Registerer) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchBytes <= 0 {
		opts.BatchBytes = defaultBatchBytes
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	indexed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mimirsbrunn_bulk_indexed_total",
		Help: "Documents successfully indexed by the bulk loader.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mimirsbrunn_bulk_failed_total",
		Help: "Documents that failed indexing, by reason.",
	}, []string{"reason"})
	if reg != nil {
		reg.MustRegister(indexed, failed)
	}

	return &Loader{backend: be, log: log, opts: opts, indexedCounter: indexed, failedCounter: failed}
}

// Load consumes docs from the channel, batching by count and byte size,
// and submits batches with Options.Workers bounded concurrency. It
// respects ctx cancellation: in-flight batches are allowed to finish, no
// new batch is started, and the producer (the channel sender) naturally
// blocks if the channel buffer fills, which is the backpressure mechanism
// (spec §4.E).
func (l *Loader) Load(ctx context.Context, docs <-chan model.Document) (*Report, error) {
	acc := &reportAccumulator{}
	batches := make(chan []model.Document, l.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		return l.batchUp(gctx, docs, batches, acc)
	})

	for i := 0; i < l.opts.Workers; i++ {
		g.Go(func() error {
			return l.submitLoop(gctx, batches, acc)
		})
	}

	if err := g.Wait(); err != nil {
		return acc.report(), err
	}
	return acc.report(), nil
}

// batchUp groups incoming documents into batches bounded by both count
// and serialized byte size, flushing early if either bound is hit.
func (l *Loader) batchUp(ctx context.Context, docs <-chan model.Document, batches chan<- []model.Document, acc *reportAccumulator) error {
	var current []model.Document
	var currentBytes int64

	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		select {
		case batches <- current:
		case <-ctx.Done():
			return ctx.Err()
		}
		current = nil
		currentBytes = 0
		return nil
	}

	for {
		select {
		case doc, ok := <-docs:
			if !ok {
				return flush()
			}
			acc.read.Add(1)

			raw, err := doc.MarshalBackend()
			if err != nil {
				acc.failed.Add(1)
				acc.addError(ItemError{ID: doc.GetID(), Reason: "marshal: " + err.Error()})
				l.failedCounter.WithLabelValues("marshal").Inc()
				continue
			}

			if len(current) >= l.opts.BatchSize || currentBytes+int64(len(raw)) > l.opts.BatchBytes {
				if err := flush(); err != nil {
					return err
				}
			}
			current = append(current, doc)
			currentBytes += int64(len(raw))

			if l.exceedsErrorRatio(acc) {
				return fmt.Errorf("bulk: error ratio threshold exceeded: %d/%d failed", acc.failed.Load(), acc.read.Load())
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loader) exceedsErrorRatio(acc *reportAccumulator) bool {
	read := acc.read.Load()
	if l.opts.ErrorRatioThreshold <= 0 || read == 0 {
		return false
	}
	return float64(acc.failed.Load())/float64(read) > l.opts.ErrorRatioThreshold
}

// submitLoop pulls batches and submits each with retry until the channel
// closes or ctx is cancelled.
func (l *Loader) submitLoop(ctx context.Context, batches <-chan []model.Document, acc *reportAccumulator) error {
	for {
		select {
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err() // cancelled: no new batch is started
			}
			if err := l.submitWithRetry(ctx, batch, acc); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loader) submitWithRetry(ctx context.Context, batch []model.Document, acc *reportAccumulator) error {
	body, err := encodeBulkBody(l.opts.Index, batch)
	if err != nil {
		return fmt.Errorf("bulk: encode batch: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= l.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Min(float64(time.Second)*math.Pow(2, float64(attempt-1)), float64(30*time.Second)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		// A request already under way runs to completion even if ctx is
		// cancelled meanwhile; cancellation only stops further attempts.
		result, err := l.backend.Bulk(context.WithoutCancel(ctx), body)
		if err == nil {
			l.tallyResult(batch, result, acc)
			return nil
		}
		lastErr = err

		type retryable interface{ IsRetryable() bool }
		if r, ok := err.(retryable); !ok || !r.IsRetryable() {
			l.log.Error("bulk: permanent batch failure", zap.Error(err), zap.Int("size", len(batch)))
			acc.failed.Add(int64(len(batch)))
			l.failedCounter.WithLabelValues("permanent").Add(float64(len(batch)))
			return nil // a permanent batch rejection is a data problem, not fatal to the whole load
		}
		l.log.Warn("bulk: transient failure, retrying", zap.Error(err), zap.Int("attempt", attempt))
	}

	acc.failed.Add(int64(len(batch)))
	l.failedCounter.WithLabelValues("retries_exhausted").Add(float64(len(batch)))
	return fmt.Errorf("bulk: retries exhausted: %w", lastErr)
}

func (l *Loader) tallyResult(batch []model.Document, result *backend.BulkResult, acc *reportAccumulator) {
	failedByID := make(map[string]string, len(result.Errors))
	for _, e := range result.Errors {
		failedByID[e.ID] = e.Reason
	}
	for _, doc := range batch {
		if reason, failed := failedByID[doc.GetID()]; failed {
			acc.failed.Add(1)
			acc.addError(ItemError{ID: doc.GetID(), Reason: reason})
			l.failedCounter.WithLabelValues("rejected").Inc()
			continue
		}
		acc.indexed.Add(1)
		l.indexedCounter.Inc()
	}
}

// encodeBulkBody renders batch as NDJSON action+document line pairs
// targeting a single index — an upsert-by-id (index, not create) so a
// duplicate id from the source (e.g. overlapping OSM extracts) is
// deduplicated at publish time rather than producing two documents.
func encodeBulkBody(index string, batch []model.Document) ([]byte, error) {
	var buf bytes.Buffer
	for _, doc := range batch {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": index, "_id": doc.GetID()},
		}
		actionBytes, err := json.Marshal(action)
		if err != nil {
			return nil, err
		}
		buf.Write(actionBytes)
		buf.WriteByte('\n')

		docBytes, err := doc.MarshalBackend()
		if err != nil {
			return nil, err
		}
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
