// Package metrics exposes Prometheus metrics for the news client: outgoing
// API traffic and favorite toggle outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsclient"

// Collector holds the client's metrics. It satisfies services.ToggleRecorder.
type Collector struct {
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	toggles  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_in_flight_requests",
			Help:      "Requests to the news service currently in flight.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests to the news service by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of requests to the news service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorite_toggles_total",
			Help:      "Favorite toggles by outcome.",
		}, []string{"result"}),
	}

	reg.MustRegister(c.inFlight, c.requests, c.latency, c.toggles)
	return c
}

// RoundTripper wraps next so that every request is counted and timed.
func (c *Collector) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(c.inFlight,
		promhttp.InstrumentRoundTripperCounter(c.requests,
			promhttp.InstrumentRoundTripperDuration(c.latency, next),
		),
	)
}

// RecordToggle counts a favorite toggle outcome.
func (c *Collector) RecordToggle(result string) {
	c.toggles.WithLabelValues(result).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServeMux serves Handler at /metrics.
func NewServeMux(gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
