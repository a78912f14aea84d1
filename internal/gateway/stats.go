// Package gateway - stats.go serves the local health and metrics endpoints.
//
// GET /health is public liveness; GET /stats returns operational counters
// and is restricted to loopback peers.
package gateway

import (
	"net"
	"net/http"
	"time"
)

// handleHealth returns gateway health status. It does not call the backend.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"backend": g.forwarder.BaseURL(),
	})
}

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to prevent external access to operational metrics.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(stateFrom(r).peerAddr) {
		writeError(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, g.metrics.FullStats())
}

// isLoopback reports whether a RemoteAddr ("host:port" or bare host) is a
// loopback address.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
