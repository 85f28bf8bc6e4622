// Package metrics registers the Prometheus collectors shared across the
// server. All collectors live on the default registry and are exported
// through the /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration observes HTTP request latency by route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partnerledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// TransactionOps counts transaction mutations by operation and result.
	TransactionOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partnerledger_transaction_ops_total",
		Help: "Transaction mutations by operation and result.",
	}, []string{"op", "result"})

	// LiveSubscribers tracks currently open live-feed subscriptions.
	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partnerledger_live_subscribers",
		Help: "Number of open live-feed subscriptions.",
	})
)

// ObserveOp records one transaction mutation outcome.
func ObserveOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TransactionOps.WithLabelValues(op, result).Inc()
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
