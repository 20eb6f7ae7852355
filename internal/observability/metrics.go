package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the application metric sink. It is constructed once and injected
// into services; nothing registers against a package-level collector.
type Metrics struct {
	EventsIngested     *prometheus.CounterVec
	IngestFailures     *prometheus.CounterVec
	UsageQueryDuration *prometheus.HistogramVec
	CacheHits          *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metering_events_ingested_total",
			Help: "Events accepted and persisted, by namespace.",
		}, []string{"namespace"}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metering_ingest_failures_total",
			Help: "Events rejected during ingestion, by namespace and reason.",
		}, []string{"namespace", "reason"}),
		UsageQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metering_usage_query_duration_seconds",
			Help:    "Latency of usage query and report aggregation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metering_cache_hits_total",
			Help: "Cache hits by cache kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.EventsIngested, m.IngestFailures, m.UsageQueryDuration, m.CacheHits)
	return m
}
