package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "requests_total",
			Help:      "Ingestion requests by final outcome",
		},
		[]string{"outcome"},
	)

	IngestStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ingest",
			Name:      "step_duration_seconds",
			Help:      "Duration of each ingestion step (storage, database, queue)",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"step", "status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "upload_bytes_total",
			Help:      "Bytes written to the object store",
		},
	)

	JWKSRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "jwks_refresh_total",
			Help:      "JWKS refresh attempts by result",
		},
		[]string{"result"},
	)
)

// RecordIngest counts one ingestion request with its outcome.
func RecordIngest(outcome string) {
	IngestRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStep records how long an ingestion step took.
func ObserveStep(step, status string, d time.Duration) {
	IngestStepDuration.WithLabelValues(step, status).Observe(d.Seconds())
}

// RecordUploadBytes adds n stored bytes.
func RecordUploadBytes(n int64) {
	if n > 0 {
		UploadBytesTotal.Add(float64(n))
	}
}

// RecordJWKSRefresh counts one JWKS refresh attempt.
func RecordJWKSRefresh(result string) {
	JWKSRefreshTotal.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
