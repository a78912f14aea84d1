package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/studyhall/chat-gateway/internal/config"
	"github.com/studyhall/chat-gateway/internal/monitoring"
)

// Client-facing messages for transport failures, one per route.
const (
	msgFetchSessionsFailed = "Failed to fetch chat sessions"
	msgCreateSessionFailed = "Failed to create chat session"
	msgRenameSessionFailed = "Failed to rename chat session"
	msgDeleteSessionFailed = "Failed to delete chat session"
	msgFetchMessagesFailed = "Failed to fetch messages"
	msgCreateMessageFailed = "Failed to send message"
)

// forwardJSON runs one JSON exchange with the caller's Authorization and
// relays the outcome with the backend's status.
func (g *Gateway) forwardJSON(w http.ResponseWriter, r *http.Request, method, path string, body any, failMsg string) {
	g.exchangeJSON(w, r, method, path, body, failMsg, false)
}

// forwardJSONOK is forwardJSON for routes that answer every successful
// exchange with 200, whatever 2xx the backend chose.
func (g *Gateway) forwardJSONOK(w http.ResponseWriter, r *http.Request, method, path string, body any, failMsg string) {
	g.exchangeJSON(w, r, method, path, body, failMsg, true)
}

func (g *Gateway) exchangeJSON(w http.ResponseWriter, r *http.Request, method, path string, body any, failMsg string, alwaysOK bool) {
	st := stateFrom(r)
	st.kind = monitoring.RouteJSON

	start := time.Now()
	res, err := g.forwarder.Forward(r.Context(), method, path, body, r.Header.Get(HeaderAuthorization))
	st.forwardLatency = time.Since(start)
	if err != nil {
		g.forwardFailed(w, r, err, failMsg)
		return
	}
	if alwaysOK && !res.Failed() {
		res.Status = http.StatusOK
	}
	g.relay(w, r, res, true)
}

// rejectInvalid writes the response for a body that failed decoding or
// validation. It reports whether the request was rejected.
func (g *Gateway) rejectInvalid(w http.ResponseWriter, r *http.Request, issues []Issue, err error, msg string) bool {
	if err == nil && len(issues) == 0 {
		return false
	}
	stateFrom(r).kind = monitoring.RouteValidation
	g.metrics.RecordValidationFailure()

	if err != nil {
		if errors.Is(err, errInvalidJSON) {
			writeError(w, "Invalid JSON body", http.StatusBadRequest)
			return true
		}
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("reading request body")
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return true
	}
	writeIssues(w, msg, issues)
	return true
}

// sessionPath returns the backend path for one session, re-escaping the id.
func sessionPath(r *http.Request, suffix string) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return config.APIPrefix + "/chat-sessions/" + url.PathEscape(id) + suffix
}

// =============================================================================
// CHAT SESSIONS
// =============================================================================

// handleListSessions handles GET /api/chat-sessions?userId=.
func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	path := config.APIPrefix + "/chat-sessions"
	if userID := r.URL.Query().Get("userId"); userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	g.forwardJSONOK(w, r, http.MethodGet, path, nil, msgFetchSessionsFailed)
}

// handleCreateSession handles POST /api/chat-sessions. The backend expects
// user_id; a missing userId is sent as null.
func (g *Gateway) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	issues, err := g.decodeAndValidate(r, &req)
	if g.rejectInvalid(w, r, issues, err, "Invalid session data") {
		return
	}

	payload, err := sjson.SetBytes([]byte(`{}`), "title", *req.Title)
	if err == nil {
		if req.UserID != nil {
			payload, err = sjson.SetBytes(payload, "user_id", *req.UserID)
		} else {
			payload, err = sjson.SetRawBytes(payload, "user_id", []byte("null"))
		}
	}
	if err != nil {
		writeError(w, msgCreateSessionFailed, http.StatusInternalServerError)
		return
	}

	g.forwardJSONOK(w, r, http.MethodPost, config.APIPrefix+"/chat-sessions", json.RawMessage(payload), msgCreateSessionFailed)
}

// handleRenameSession handles PATCH /api/chat-sessions/{id}.
func (g *Gateway) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	var req renameSessionRequest
	issues, err := g.decodeAndValidate(r, &req)
	if g.rejectInvalid(w, r, issues, err, "Invalid session data") {
		return
	}
	g.forwardJSON(w, r, http.MethodPatch, sessionPath(r, ""), map[string]string{"title": *req.Title}, msgRenameSessionFailed)
}

// handleDeleteSession handles DELETE /api/chat-sessions/{id}.
func (g *Gateway) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	g.forwardJSON(w, r, http.MethodDelete, sessionPath(r, ""), nil, msgDeleteSessionFailed)
}

// =============================================================================
// MESSAGES
// =============================================================================

// handleListMessages handles GET /api/chat-sessions/{id}/messages.
func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	g.forwardJSONOK(w, r, http.MethodGet, sessionPath(r, "/messages"), nil, msgFetchMessagesFailed)
}

// handleCreateMessage handles POST /api/messages. The backend takes the same
// camelCase keys; unknown fields are dropped.
func (g *Gateway) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	issues, err := g.decodeAndValidate(r, &req)
	if g.rejectInvalid(w, r, issues, err, "Invalid message data") {
		return
	}
	body := map[string]string{
		"sessionId": *req.SessionID,
		"content":   *req.Content,
		"role":      *req.Role,
	}
	g.forwardJSONOK(w, r, http.MethodPost, config.APIPrefix+"/messages", body, msgCreateMessageFailed)
}
