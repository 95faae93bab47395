package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the media relay.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	resolutionsTotal   *prometheus.CounterVec
	relaysTotal        *prometheus.CounterVec
	relayedBytesTotal  *prometheus.CounterVec
	relayInterruptions prometheus.Counter
	activeSessions     prometheus.Gauge
}

// New creates and registers Prometheus metrics for the relay.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mediarelay_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mediarelay_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_resolutions_total",
		Help: "Descriptor resolutions by platform and outcome",
	}, []string{"platform", "outcome"})
	relaysTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_relays_total",
		Help: "Relays started by strategy",
	}, []string{"strategy"})
	relayedBytesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mediarelay_relayed_bytes_total",
		Help: "Bytes forwarded to clients by strategy",
	}, []string{"strategy"})
	relayInterruptions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mediarelay_relay_interruptions_total",
		Help: "Relays that ended early after headers were sent",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mediarelay_active_sessions",
		Help: "Number of in-flight stream sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		resolutionsTotal,
		relaysTotal,
		relayedBytesTotal,
		relayInterruptions,
		activeSessions,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		errorsTotal:        errorsTotal,
		resolutionsTotal:   resolutionsTotal,
		relaysTotal:        relaysTotal,
		relayedBytesTotal:  relayedBytesTotal,
		relayInterruptions: relayInterruptions,
		activeSessions:     activeSessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveResolution counts one resolution; outcome is "success" or "error".
func (m *Metrics) ObserveResolution(platform, outcome string) {
	m.resolutionsTotal.WithLabelValues(platform, outcome).Inc()
}

// IncRelays counts a relay that committed response headers.
func (m *Metrics) IncRelays(strategy string) {
	m.relaysTotal.WithLabelValues(strategy).Inc()
}

// AddRelayedBytes adds n forwarded bytes for strategy.
func (m *Metrics) AddRelayedBytes(strategy string, n int64) {
	if n > 0 {
		m.relayedBytesTotal.WithLabelValues(strategy).Add(float64(n))
	}
}

// IncRelayInterruptions counts a relay that ended after streaming began.
func (m *Metrics) IncRelayInterruptions() {
	m.relayInterruptions.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
