// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by both gateway/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - RouteKind:     Which forwarding path served a request
//   - RequestEvent:  Telemetry data for each request
//   - Config types:  TelemetryConfig, LoggerConfig
package monitoring

import "time"

// =============================================================================
// ROUTE KINDS - Used by router and telemetry
// =============================================================================

// RouteKind identifies how the gateway served a request.
type RouteKind string

const (
	RouteJSON       RouteKind = "json"        // forwarded via the JSON forwarder
	RouteStream     RouteKind = "stream"      // multipart passthrough
	RouteValidation RouteKind = "validation"  // rejected locally with 422
	RouteNotFound   RouteKind = "not_found"   // unmatched path under the API prefix
	RouteLocal      RouteKind = "local"       // health/stats, never forwarded
	RouteAuthDenied RouteKind = "auth_denied" // upload without bearer
)

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// RequestEvent captures a request through the gateway.
type RequestEvent struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Method           string    `json:"method"`
	Path             string    `json:"path"`
	Route            string    `json:"route,omitempty"`
	ClientIP         string    `json:"client_ip"`
	Kind             RouteKind `json:"kind"`
	HasAuth          bool      `json:"has_auth"`
	RequestBodySize  int64     `json:"request_body_size"`
	ResponseBodySize int       `json:"response_body_size"`
	StatusCode       int       `json:"status_code"`
	UpstreamStatus   int       `json:"upstream_status,omitempty"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	ForwardLatencyMs int64     `json:"forward_latency_ms"`
	TotalLatencyMs   int64     `json:"total_latency_ms"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}
