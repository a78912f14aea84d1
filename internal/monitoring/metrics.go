// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes: Total and successful request counts
//   - rejections:         Local 422s and missing-bearer uploads
//   - upstream:           Backend error statuses and transport failures
//   - uploads:            Streamed uploads, bytes relayed, aborted transfers
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Request counters
	requests  atomic.Int64
	successes atomic.Int64
	notFound  atomic.Int64

	// Local rejections
	validationFailures atomic.Int64
	authDenied         atomic.Int64

	// Upstream outcomes
	upstreamErrors  atomic.Int64 // backend answered with >= 400
	transportErrors atomic.Int64 // backend unreachable

	// Upload passthrough
	uploads        atomic.Int64
	uploadBytes    atomic.Int64
	uploadsAborted atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordRequest records a request.
func (mc *MetricsCollector) RecordRequest(success bool, _ time.Duration) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordNotFound records an unmatched API path.
func (mc *MetricsCollector) RecordNotFound() { mc.notFound.Add(1) }

// RecordValidationFailure records a payload rejected with 422.
func (mc *MetricsCollector) RecordValidationFailure() { mc.validationFailures.Add(1) }

// RecordAuthDenied records an upload refused for lack of a bearer token.
func (mc *MetricsCollector) RecordAuthDenied() { mc.authDenied.Add(1) }

// RecordUpstreamError records a backend response with status >= 400.
func (mc *MetricsCollector) RecordUpstreamError() { mc.upstreamErrors.Add(1) }

// RecordTransportError records a failure to reach the backend.
func (mc *MetricsCollector) RecordTransportError() { mc.transportErrors.Add(1) }

// RecordUpload records a completed streamed upload of n bytes.
func (mc *MetricsCollector) RecordUpload(n int64) {
	mc.uploads.Add(1)
	mc.uploadBytes.Add(n)
}

// RecordUploadAborted records an upload whose inbound stream ended early.
func (mc *MetricsCollector) RecordUploadAborted() { mc.uploadsAborted.Add(1) }

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	requests := mc.requests.Load()
	successes := mc.successes.Load()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:      requests,
			Successful: successes,
			Failed:     requests - successes,
			NotFound:   mc.notFound.Load(),
		},
		Rejections: RejectionStats{
			Validation: mc.validationFailures.Load(),
			AuthDenied: mc.authDenied.Load(),
		},
		Upstream: UpstreamStats{
			ErrorResponses:  mc.upstreamErrors.Load(),
			TransportErrors: mc.transportErrors.Load(),
		},
		Uploads: UploadStats{
			Completed:     mc.uploads.Load(),
			BytesRelayed:  mc.uploadBytes.Load(),
			AbortedStream: mc.uploadsAborted.Load(),
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string         `json:"uptime"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartedAt     string         `json:"started_at"`
	Requests      RequestStats   `json:"requests"`
	Rejections    RejectionStats `json:"rejections"`
	Upstream      UpstreamStats  `json:"upstream"`
	Uploads       UploadStats    `json:"uploads"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	NotFound   int64 `json:"not_found"`
}

// RejectionStats holds requests refused before reaching the backend.
type RejectionStats struct {
	Validation int64 `json:"validation"`
	AuthDenied int64 `json:"auth_denied"`
}

// UpstreamStats holds backend failure counts.
type UpstreamStats struct {
	ErrorResponses  int64 `json:"error_responses"`
	TransportErrors int64 `json:"transport_errors"`
}

// UploadStats holds passthrough upload metrics.
type UploadStats struct {
	Completed     int64 `json:"completed"`
	BytesRelayed  int64 `json:"bytes_relayed"`
	AbortedStream int64 `json:"aborted_stream"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
