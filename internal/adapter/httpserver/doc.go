// Package httpserver exposes the live data store, the formatters and the relay over HTTP.
//
// Read endpoints live under /api behind a per-IP rate limiter; POST /api/events is only
// registered when an API token is configured. Health probes, /version and /metrics sit
// outside the limiter, as do listener WebSocket endpoints served by relay clients.
package httpserver
