// Package main is the entry point for the TenantOS backend server.
//
// The server multiplexes many users over one process: each inbound
// websocket connection carries a user identifier, every request runs
// with that identity bound to its context, and all resource access
// (files, state, commands, document events, terminals) is routed to
// that user's isolated session.
//
// The server provides:
//   - WebSocket streaming at /stream (one identity per connection)
//   - REST API for health, service discovery, and session admin
//   - Per-user service providers (filesystem, state, terminal)
//   - Prometheus metrics at /metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	./server -port 8000 -storage /var/lib/tenantos
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
