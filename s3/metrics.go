package s3

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opUpload   = "upload"
	opDownload = "download"
	opDelete   = "delete"
)

var storageOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "proposal_service_storage_operations_total",
	Help: "Object storage calls, partitioned by operation and whether they failed.",
}, []string{"operation", "failed"})

var artifactBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "proposal_service_stored_artifact_bytes",
	Help:    "Size of proposal artifacts written to object storage.",
	Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
})

func observeOp(op string, err error) {
	failed := "false"
	if err != nil {
		failed = "true"
	}
	storageOps.WithLabelValues(op, failed).Inc()
}

func init() {
	prometheus.MustRegister(storageOps, artifactBytes)
}
