package monitoring

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics_Empty(t *testing.T) {
	mc := NewMetricsCollector()
	stats := mc.FullStats()

	assert.Equal(t, RequestStats{}, stats.Requests)
	assert.Equal(t, UploadStats{}, stats.Uploads)
	assert.Equal(t, "0m", stats.Uptime)
	assert.NotEmpty(t, stats.StartedAt)
}

func TestMetrics_RecordRequest(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordRequest(true, time.Second)
	mc.RecordRequest(true, time.Second)
	mc.RecordRequest(false, time.Second)
	mc.RecordNotFound()

	req := mc.FullStats().Requests
	assert.Equal(t, int64(3), req.Total)
	assert.Equal(t, int64(2), req.Successful)
	assert.Equal(t, int64(1), req.Failed)
	assert.Equal(t, int64(1), req.NotFound)
}

func TestMetrics_RejectionsAndUpstream(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordValidationFailure()
	mc.RecordValidationFailure()
	mc.RecordAuthDenied()
	mc.RecordUpstreamError()
	mc.RecordTransportError()
	mc.RecordTransportError()

	stats := mc.FullStats()
	assert.Equal(t, RejectionStats{Validation: 2, AuthDenied: 1}, stats.Rejections)
	assert.Equal(t, UpstreamStats{ErrorResponses: 1, TransportErrors: 2}, stats.Upstream)
}

func TestMetrics_Uploads(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordUpload(1024)
	mc.RecordUpload(2048)
	mc.RecordUploadAborted()

	assert.Equal(t, UploadStats{Completed: 2, BytesRelayed: 3072, AbortedStream: 1}, mc.FullStats().Uploads)
}

func TestMetrics_Concurrent(t *testing.T) {
	mc := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mc.RecordRequest(true, time.Millisecond)
			mc.RecordUpload(10)
		}()
	}
	wg.Wait()

	stats := mc.FullStats()
	assert.Equal(t, int64(50), stats.Requests.Total)
	assert.Equal(t, int64(500), stats.Uploads.BytesRelayed)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h 3m", formatDuration(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m", formatDuration(25*time.Hour))
}

// =============================================================================
// TELEMETRY
// =============================================================================

func TestTracker_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "requests.jsonl")
	tr, err := NewTracker(TelemetryConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)

	tr.RecordRequest(&RequestEvent{RequestID: "a", Kind: RouteJSON, StatusCode: 200, Success: true})
	tr.RecordRequest(&RequestEvent{RequestID: "b", Kind: RouteValidation, StatusCode: 422})
	tr.RecordRequest(nil)
	require.NoError(t, tr.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []RequestEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev RequestEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, RouteJSON, events[0].Kind)
	assert.Equal(t, 422, events[1].StatusCode)
}

func TestTracker_DisabledAndNil(t *testing.T) {
	tr, err := NewTracker(TelemetryConfig{})
	require.NoError(t, err)
	tr.RecordRequest(&RequestEvent{RequestID: "x"})
	assert.NoError(t, tr.Close())

	var nilTracker *Tracker
	nilTracker.RecordRequest(&RequestEvent{})
	assert.NoError(t, nilTracker.Close())
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
