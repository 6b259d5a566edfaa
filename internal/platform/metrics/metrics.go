package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	RecordsFetched *prometheus.CounterVec
	FetchRetries   prometheus.Counter
	PagesWritten   *prometheus.CounterVec
	PagesSkipped   *prometheus.CounterVec
	RecordsLoaded  *prometheus.CounterVec
	PhaseDuration  *prometheus.HistogramVec
}

// New creates and registers all metrics against the given registerer. Tests
// pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipeds_etl_records_fetched_total",
			Help: "Records returned by the API, per dataset",
		}, []string{"dataset"}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "ipeds_etl_fetch_retries_total",
			Help: "HTTP attempts that failed and were retried",
		}),
		PagesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipeds_etl_raw_pages_written_total",
			Help: "Raw pages physically rewritten in the archive, per dataset",
		}, []string{"dataset"}),
		PagesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipeds_etl_raw_pages_skipped_total",
			Help: "Raw pages left untouched because the content hash matched, per dataset",
		}, []string{"dataset"}),
		RecordsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ipeds_etl_records_loaded_total",
			Help: "Mapped records upserted into core tables, per dataset",
		}, []string{"dataset"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ipeds_etl_phase_duration_seconds",
			Help:    "Duration of harvest and load phases",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"dataset", "phase"}),
	}
}
