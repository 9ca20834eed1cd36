// Package metrics centralizes the prometheus collectors shared by ingest
// and query, matching the spec's "counters as the only shared mutable
// state" concurrency rule (spec §5) by keeping every counter atomic and
// lock-free (prometheus client handles that internally).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest tracks per-document-type outcomes during a bulk load.
type Ingest struct {
	Read    *prometheus.CounterVec
	Indexed *prometheus.CounterVec
	Skipped *prometheus.CounterVec
	Failed  *prometheus.CounterVec
}

// Query tracks HTTP-facing latency and per-route request counts.
type Query struct {
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// NewIngest registers and returns the ingest collector set.
func NewIngest(reg prometheus.Registerer) *Ingest {
	labels := []string{"doc_type"}
	i := &Ingest{
		Read:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mimirsbrunn_ingest_read_total", Help: "Source records read, by document type."}, labels),
		Indexed: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mimirsbrunn_ingest_indexed_total", Help: "Documents successfully indexed, by document type."}, labels),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mimirsbrunn_ingest_skipped_total", Help: "Source records skipped as malformed, by document type."}, labels),
		Failed:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "mimirsbrunn_ingest_failed_total", Help: "Documents that failed to index, by document type."}, labels),
	}
	if reg != nil {
		reg.MustRegister(i.Read, i.Indexed, i.Skipped, i.Failed)
	}
	return i
}

// NewQuery registers and returns the query collector set.
func NewQuery(reg prometheus.Registerer) *Query {
	q := &Query{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mimirsbrunn_query_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mimirsbrunn_query_request_total",
			Help: "HTTP requests served, by route and status class.",
		}, []string{"route", "status_class"}),
	}
	if reg != nil {
		reg.MustRegister(q.RequestDuration, q.RequestTotal)
	}
	return q
}
