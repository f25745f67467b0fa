// Package metrics exposes Prometheus collectors for the annotation
// pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal        *prometheus.CounterVec
	fetchBytesTotal     *prometheus.CounterVec
	renderRequestsTotal *prometheus.CounterVec
	rowsTotal           *prometheus.CounterVec
	outcomeScores       *prometheus.HistogramVec
	blockedHostsTotal   *prometheus.CounterVec
	activeRows          prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisle_fetches_total",
				Help: "Fetch attempts, labeled by retailer, strategy, and status hint.",
			},
			[]string{"retailer", "method", "status"},
		)
		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisle_fetch_bytes_total",
				Help: "Bytes received from accepted fetches, labeled by retailer.",
			},
			[]string{"retailer"},
		)
		renderRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisle_render_requests_total",
				Help: "External renderer requests, labeled by retailer and status.",
			},
			[]string{"retailer", "status"},
		)
		rowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisle_rows_total",
				Help: "Rows processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		outcomeScores = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aisle_outcome_score",
				Help:    "Quality scores of successful extractions.",
				Buckets: []float64{10, 25, 50, 70, 85, 95, 100},
			},
			[]string{"retailer"},
		)
		blockedHostsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisle_blocked_hosts_total",
				Help: "Block detections, labeled by retailer.",
			},
			[]string{"retailer"},
		)
		activeRows = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "aisle_active_rows",
				Help: "Rows currently being processed.",
			},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(retailer, method, status string, bytes int) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(retailer, method, status).Inc()
	if bytes > 0 {
		fetchBytesTotal.WithLabelValues(retailer).Add(float64(bytes))
	}
}

// ObserveRender records one external renderer request.
func ObserveRender(retailer, status string) {
	if renderRequestsTotal == nil {
		return
	}
	renderRequestsTotal.WithLabelValues(retailer, status).Inc()
}

// ObserveBlocked records a block detection.
func ObserveBlocked(retailer string) {
	if blockedHostsTotal == nil {
		return
	}
	blockedHostsTotal.WithLabelValues(retailer).Inc()
}

// ObserveRow records a finished row.
func ObserveRow(outcome string) {
	if rowsTotal == nil {
		return
	}
	rowsTotal.WithLabelValues(outcome).Inc()
}

// ObserveScore records a successful extraction's score.
func ObserveScore(retailer string, score int) {
	if outcomeScores == nil {
		return
	}
	outcomeScores.WithLabelValues(retailer).Observe(float64(score))
}

// IncActiveRows marks a row in flight.
func IncActiveRows() {
	if activeRows != nil {
		activeRows.Inc()
	}
}

// DecActiveRows marks a row done.
func DecActiveRows() {
	if activeRows != nil {
		activeRows.Dec()
	}
}
