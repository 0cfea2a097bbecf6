// Package middleware provides HTTP middleware for the relay's API server.
//
// It includes:
//   - Request id assignment (X-Request-ID)
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics keyed by route template
package middleware
