package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envdash_ingest_runs_total",
		Help: "Total ingestion runs per dataset",
	}, []string{"dataset"})
	IngestFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envdash_ingest_failures_total",
		Help: "Total fetch failures per dataset",
	}, []string{"dataset"})
	IngestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "envdash_ingest_duration_ms",
		Help:    "Ingestion run duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"dataset"})
	FeaturesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "envdash_features_skipped_total",
		Help: "Features skipped during normalization, by reason",
	}, []string{"dataset", "reason"})
	PointRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "envdash_point_records",
		Help: "Current point-record count per dataset",
	}, []string{"dataset"})
	SnapshotsComputedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envdash_snapshots_computed_total",
		Help: "Total aggregate snapshot computations",
	})
	ChartUpdateFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envdash_chart_update_failures_total",
		Help: "Total chart update deliveries that failed",
	})
	ClimateCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envdash_climate_cache_hits_total",
		Help: "Total climate cache hits",
	})
	ClimateCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "envdash_climate_cache_misses_total",
		Help: "Total climate cache misses",
	})
	SubscribersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "envdash_subscribers_connected",
		Help: "Currently connected dashboard subscribers",
	})
)

// Skip reasons for FeaturesSkippedTotal
const (
	ReasonMalformedGeometry    = "malformed_geometry"
	ReasonCentroidUnresolvable = "centroid_unresolvable"
)

func init() {
	prometheus.MustRegister(IngestRunsTotal)
	prometheus.MustRegister(IngestFailuresTotal)
	prometheus.MustRegister(IngestDurationMs)
	prometheus.MustRegister(FeaturesSkippedTotal)
	prometheus.MustRegister(PointRecords)
	prometheus.MustRegister(SnapshotsComputedTotal)
	prometheus.MustRegister(ChartUpdateFailuresTotal)
	prometheus.MustRegister(ClimateCacheHitsTotal)
	prometheus.MustRegister(ClimateCacheMissesTotal)
	prometheus.MustRegister(SubscribersConnected)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
