package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studyhall/chat-gateway/internal/monitoring"
	"github.com/studyhall/chat-gateway/internal/upstream"
	"github.com/studyhall/chat-gateway/internal/utils"
)

// handleUpload streams POST /api/admin/upload and /api/admin/upload-simple
// to the same backend path. Both paths share one authorization policy: when
// uploads.require_auth is set, a missing bearer is refused before any byte is
// relayed. Whether the bearer belongs to an admin is the backend's call.
func (g *Gateway) handleUpload(w http.ResponseWriter, r *http.Request) {
	st := stateFrom(r)
	st.kind = monitoring.RouteStream

	auth := strings.TrimSpace(r.Header.Get(HeaderAuthorization))
	if g.config.UploadRequiresAuth() && auth == "" {
		st.kind = monitoring.RouteAuthDenied
		g.metrics.RecordAuthDenied()
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	log.Debug().
		Str("path", r.URL.Path).
		Str("content_type", r.Header.Get("Content-Type")).
		Str("authorization", utils.MaskAuthorization(auth)).
		Msg("upload received")

	start := time.Now()
	rc := http.NewResponseController(w)
	res, err := g.forwarder.ForwardStream(r.Context(), r.URL.Path, r, upstream.WithInterrupt(func() {
		_ = rc.SetReadDeadline(time.Now())
	}))
	st.forwardLatency = time.Since(start)
	if err != nil {
		g.forwardFailed(w, r, err, "Failed to upload document")
		return
	}

	if !res.Failed() {
		g.metrics.RecordUpload(res.BytesSent)
	}
	g.relay(w, r, res, false)
}
