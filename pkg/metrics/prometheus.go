// Package metrics provides Prometheus metrics for the outbound call service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service's collectors and the registry they live on.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Call lifecycle
	eventsTotal       *prometheus.CounterVec
	decodeErrorsTotal *prometheus.CounterVec
	callsStarted      *prometheus.CounterVec

	// Provider API
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
}

// NewManager creates a metrics manager. Without WithRegistry it uses a fresh
// registry, so several managers can coexist in tests.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "outbound",
		subsystem:        "calls",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_total",
		Help:      "Inbound call events by type and tracker outcome",
	}, []string{"event_type", "outcome"})

	m.decodeErrorsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decode_errors_total",
		Help:      "Inbound signals that could not be decoded, by error kind",
	}, []string{"kind"})

	m.callsStarted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "started_total",
		Help:      "Outbound call attempts by result",
	}, []string{"result"})

	m.providerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "provider_requests_total",
		Help:      "Telephony provider API requests by operation and result",
	}, []string{"op", "result"})

	m.providerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "provider_request_duration_seconds",
		Help:      "Telephony provider API latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})
}

func (m *Manager) ObserveEvent(eventType, outcome string) {
	if !m.enabled {
		return
	}
	m.eventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Manager) ObserveDecodeError(kind string) {
	if !m.enabled {
		return
	}
	m.decodeErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Manager) ObserveCallStarted(result string) {
	if !m.enabled {
		return
	}
	m.callsStarted.WithLabelValues(result).Inc()
}

func (m *Manager) ObserveProviderRequest(op, result string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.providerRequests.WithLabelValues(op, result).Inc()
	m.providerLatency.WithLabelValues(op).Observe(d.Seconds())
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
