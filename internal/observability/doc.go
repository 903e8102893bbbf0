// Package observability provides structured logging and metrics for the
// todos authorizer, the list-todos handler and the local API server.
//
// Logging is zap-based; metrics are Prometheus collectors registered on a
// registry owned by Metrics rather than the process-wide default.
package observability
