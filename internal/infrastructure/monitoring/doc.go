// Package monitoring provides Prometheus metrics for the backend:
// HTTP request counters and latencies, session and terminal gauges,
// per-proxy call metrics, and WebSocket connection/message counters.
//
// Each Metrics instance owns a private registry, exposed through
// Handler for the /metrics scrape endpoint.
package monitoring
