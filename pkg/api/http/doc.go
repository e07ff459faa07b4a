// Package http provides the HTTP trigger API.
//
// The HTTP server exposes endpoints for:
//   - Triggering a refresh, plot and upload (batch JSON or streamed text)
//   - Trigger record lookup
//   - Liveness checks
//   - Prometheus metrics
package http
