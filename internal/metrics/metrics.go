// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/view"
)

type metrics struct {
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec

	systems         *prometheus.GaugeVec
	pendingRequests prometheus.Gauge

	notifications *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lab",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of engine operations broken down by operation and result.",
		}, []string{"op", "result"}),
		operationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lab",
			Subsystem: "engine",
			Name:      "operation_latency_seconds",
			Help:      "Latency distribution for engine operations.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"op"}),
		systems: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lab",
			Name:      "systems",
			Help:      "Current number of systems per category and status.",
		}, []string{"category", "status"}),
		pendingRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "lab",
			Name:      "pending_requests",
			Help:      "Current number of requests awaiting review.",
		}),
		notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lab",
			Subsystem: "notify",
			Name:      "events_total",
			Help:      "Total number of notification events broken down by result.",
		}, []string{"result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// ObserveOperation records one engine operation and its outcome.
func ObserveOperation(op string, started time.Time, err error) {
	m := getMetrics()
	m.operations.WithLabelValues(op, model.Code(err)).Inc()
	m.operationLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveSnapshot refreshes the inventory gauges from a snapshot.
func ObserveSnapshot(s view.Snapshot) {
	m := getMetrics()
	st := s.Stats()
	for cat, byStatus := range st.ByCategoryStatus {
		for status, n := range byStatus {
			m.systems.WithLabelValues(string(cat), string(status)).Set(float64(n))
		}
	}
	m.pendingRequests.Set(float64(st.PendingRequests))
}

// Notification results.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifyGone    = "gone"
	NotifyDropped = "dropped"
	NotifyNoSubs  = "no_subscription"
)

// ObserveNotification counts one notification outcome.
func ObserveNotification(result string) {
	getMetrics().notifications.WithLabelValues(result).Inc()
}
