// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kiosk"

var (
	// BiometricRequestDuration tracks vendor call latency.
	// Labels: operation (process, identify, enroll, ...), status (2xx, 4xx, 5xx, error)
	BiometricRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "biometric",
			Name:      "request_duration_seconds",
			Help:      "Duration of biometric gateway calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// IdentifyOutcomes counts resolver results.
	// Labels: path (face, manual), kind (matched, not_detected, ...)
	IdentifyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "outcomes_total",
			Help:      "Identity resolution outcomes by path and kind",
		},
		[]string{"path", "kind"},
	)

	// CheckIns counts check-in attempts.
	// Labels: result (transitioned, already)
	CheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkin",
			Name:      "attempts_total",
			Help:      "Check-in attempts by result",
		},
		[]string{"result"},
	)

	// CompletionRequests counts assistant completions.
	// Labels: result (success, error)
	CompletionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completions_total",
			Help:      "Text completion calls by result",
		},
		[]string{"result"},
	)

	ChatSessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "sessions_evicted_total",
			Help:      "Conversation sessions removed by the idle sweep",
		},
	)
)

// StatusClass buckets an HTTP status for low-cardinality labels.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
