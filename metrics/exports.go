package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	exportRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proposal_service_export_runs_total",
		Help: "Number of export runs, partitioned by format and outcome.",
	}, []string{"format", "outcome"})
	exportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proposal_service_export_duration_seconds",
		Help:    "Time spent rendering a proposal, partitioned by format.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"format"})
	exportSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proposal_service_export_size_bytes",
		Help:    "Size of rendered proposals, partitioned by format.",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
	}, []string{"format"})
	exportSlides = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "proposal_service_export_slides",
		Help:    "Number of content model entries per export run.",
		Buckets: prometheus.LinearBuckets(2, 10, 10),
	})
	assetFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proposal_service_asset_fallbacks_total",
		Help: "Number of images or logos replaced by a placeholder, partitioned by kind.",
	}, []string{"kind"})
)

// Outcome labels for ObserveExport.
const (
	OutcomeSuccess       = "success"
	OutcomeFailed        = "failed"
	OutcomeEmptySelected = "empty_selection"
)

// ObserveExport records one finished export run.
func ObserveExport(format, outcome string, seconds float64, size int) {
	exportRuns.WithLabelValues(format, outcome).Inc()
	if outcome == OutcomeSuccess {
		exportDuration.WithLabelValues(format).Observe(seconds)
		exportSize.WithLabelValues(format).Observe(float64(size))
	}
}

func ObserveSlides(n int) {
	exportSlides.Observe(float64(n))
}

// AssetFallback counts a placeholder substitution. kind is "logo", "image" or "badge".
func AssetFallback(kind string) {
	assetFallbacks.WithLabelValues(kind).Inc()
}

func init() {
	prometheus.MustRegister(exportRuns)
	prometheus.MustRegister(exportDuration)
	prometheus.MustRegister(exportSize)
	prometheus.MustRegister(exportSlides)
	prometheus.MustRegister(assetFallbacks)
}
