package gateway

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/studyhall/chat-gateway/internal/keycase"
	"github.com/studyhall/chat-gateway/internal/monitoring"
	"github.com/studyhall/chat-gateway/internal/upstream"
	"github.com/studyhall/chat-gateway/internal/utils"
)

// writeJSON writes v as the response body. 204 and 304 are sent without a
// body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusNoContent || status == http.StatusNotModified {
		w.WriteHeader(status)
		return
	}
	data, err := utils.MarshalNoEscape(v)
	if err != nil {
		log.Error().Err(err).Msg("encoding response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal Server Error"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// writeError writes the gateway's {"message": ...} error envelope.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeIssues writes a 422 with itemized validation issues.
func writeIssues(w http.ResponseWriter, msg string, issues []Issue) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": msg,
		"issues":  issues,
	})
}

// relay writes a completed backend exchange. Error statuses are passed
// through verbatim; successful JSON is key-translated when translate is set.
func (g *Gateway) relay(w http.ResponseWriter, r *http.Request, res *upstream.Result, translate bool) {
	st := stateFrom(r)
	st.upstreamStatus = res.Status

	if res.Failed() {
		g.metrics.RecordUpstreamError()
		st.errMsg = "upstream status"
		writeJSON(w, res.Status, res.Data)
		return
	}

	data := res.Data
	if translate {
		data = keycase.ToCamel(data)
	}
	writeJSON(w, res.Status, data)
}

// forwardFailed maps a Forward/ForwardStream error onto the public response.
// The cause stays in the log; the client only sees failMsg.
func (g *Gateway) forwardFailed(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	st := stateFrom(r)
	st.errMsg = err.Error()

	log.Error().
		Err(err).
		Str("request_id", monitoring.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Msg("forward failed")

	switch {
	case errors.Is(err, upstream.ErrTransferAborted):
		g.metrics.RecordUploadAborted()
		writeError(w, "Upload aborted", http.StatusBadGateway)
	default:
		g.metrics.RecordTransportError()
		writeError(w, failMsg, http.StatusBadGateway)
	}
}
