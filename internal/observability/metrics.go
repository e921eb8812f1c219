// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ledger service.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec // labels: op, status
	OperationDuration *prometheus.HistogramVec

	// Decay metrics
	DecaySettlements prometheus.Counter
	DecayedUnits     prometheus.Counter

	// Journal / feed metrics
	EventsJournaled prometheus.Counter
	FeedSubscribers prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "decay_ledger"
	}

	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by type and status",
		}, []string{"op", "status"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		DecaySettlements: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decay",
			Name:      "settlements_total",
			Help:      "Total number of decay settlements committed",
		}),
		DecayedUnits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decay",
			Name:      "units_removed_total",
			Help:      "Total integer units removed from balances by decay",
		}),
		EventsJournaled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "events_total",
			Help:      "Total number of ledger events journaled",
		}),
		FeedSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Current number of websocket feed subscribers",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
