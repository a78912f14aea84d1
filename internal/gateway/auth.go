package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/studyhall/chat-gateway/internal/config"
)

var authFailMessages = map[string]string{
	"/register": "Registration failed",
	"/login":    "Login failed",
	"/logout":   "Logout failed",
	"/me":       "Failed to fetch current user",
}

// handleAuthForward relays /api/auth/* to the backend unchanged apart from
// key translation of successful responses. Credentials are not inspected.
func (g *Gateway) handleAuthForward(w http.ResponseWriter, r *http.Request) {
	suffix := r.URL.Path[len(config.APIPrefix+"/auth"):]
	failMsg := authFailMessages[suffix]

	var body any
	if r.Method != http.MethodGet {
		raw, err := io.ReadAll(io.LimitReader(r.Body, config.MaxJSONBodySize))
		if err != nil {
			writeError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 {
			if !gjson.ValidBytes(raw) {
				writeError(w, "Invalid JSON body", http.StatusBadRequest)
				return
			}
			body = json.RawMessage(raw)
		}
	}

	g.forwardJSON(w, r, r.Method, config.APIPrefix+"/auth"+suffix, body, failMsg)
}
