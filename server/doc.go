// Package server provides the daemon's HTTP server: Gin for routing with
// HTTP/2 (h2c) support, a standard middleware stack, and built-in
// observability endpoints.
//
// The server follows the component pattern with lifecycle management so the
// bootstrap layer can start and stop it alongside the rest of the daemon.
//
// # Middleware
//
// Built-in middleware (server/middleware), applied at the handler level via
// ApplyMiddleware so it covers every mounted handler:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin resource sharing configuration
//   - BodySizeLimit: request body size limits
//   - RateLimit: per-client sliding-window rate limiting (opt-in)
//   - Telemetry: per-request span and request metrics
//   - RequestLogger: request logging with duration tracking
//
// # Endpoints
//
// Built-in endpoints (server/endpoint), registered by RegisterDefaultEndpoints:
//
//   - /health: health check aggregation across components
//   - /ready: readiness probe (503 while any component is unhealthy)
//   - /alive: liveness probe
//   - /info: service, version, and uptime information
//   - /version: build version information
//   - /metrics: runtime memory and goroutine metrics
//
// Streaming routes (such as the per-session SSE feed) are registered by the
// daemon on the Gin engine; WriteTimeout defaults to 0 so those streams are
// not severed by the server.
package server
