package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. Each instance carries its own
// registry so construction is repeatable in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Proxy metrics
	ProxyCalls    *prometheus.CounterVec
	ProxyDuration *prometheus.HistogramVec
	ProxyErrors   *prometheus.CounterVec

	// Terminal metrics
	TerminalsActive prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector with a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_sessions_active",
				Help: "Number of live user sessions",
			},
		),
		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_sessions_total",
				Help: "Total number of user sessions created",
			},
		),

		ProxyCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_proxy_calls_total",
				Help: "Total number of resource proxy calls",
			},
			[]string{"proxy", "operation", "status"},
		),
		ProxyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_proxy_duration_seconds",
				Help:    "Resource proxy call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"proxy", "operation"},
		),
		ProxyErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_proxy_errors_total",
				Help: "Total number of resource proxy errors",
			},
			[]string{"proxy", "operation"},
		),

		TerminalsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_terminals_active",
				Help: "Number of live terminals",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Registry exposes the underlying registry for the scrape handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProxyCall records a resource proxy call.
func (m *Metrics) RecordProxyCall(proxy, operation, status string, duration time.Duration) {
	m.ProxyCalls.WithLabelValues(proxy, operation, status).Inc()
	m.ProxyDuration.WithLabelValues(proxy, operation).Observe(duration.Seconds())
}

// RecordProxyError records a resource proxy error.
func (m *Metrics) RecordProxyError(proxy, operation string) {
	m.ProxyErrors.WithLabelValues(proxy, operation).Inc()
}

// RecordWSMessage records a WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSessionsActive sets the number of live sessions.
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// IncSessionsTotal increments the sessions created counter.
func (m *Metrics) IncSessionsTotal() {
	m.SessionsTotal.Inc()
}

// SetTerminalsActive sets the number of live terminals.
func (m *Metrics) SetTerminalsActive(count int) {
	m.TerminalsActive.Set(float64(count))
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
