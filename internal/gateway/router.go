package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/studyhall/chat-gateway/internal/config"
	"github.com/studyhall/chat-gateway/internal/monitoring"
)

// =============================================================================
// ROUTE TABLE
// =============================================================================

func (g *Gateway) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(g.requestContext)
	r.Use(middleware.RealIP)
	r.Use(g.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth)
	r.Get("/stats", g.handleStats)

	r.Route(config.APIPrefix, func(api chi.Router) {
		api.Get("/chat-sessions", g.handleListSessions)
		api.Post("/chat-sessions", g.handleCreateSession)
		api.Patch("/chat-sessions/{id}", g.handleRenameSession)
		api.Delete("/chat-sessions/{id}", g.handleDeleteSession)
		api.Get("/chat-sessions/{id}/messages", g.handleListMessages)
		api.Post("/messages", g.handleCreateMessage)

		api.Post("/auth/register", g.handleAuthForward)
		api.Post("/auth/login", g.handleAuthForward)
		api.Post("/auth/logout", g.handleAuthForward)
		api.Get("/auth/me", g.handleAuthForward)

		api.Post("/admin/upload", g.handleUpload)
		api.Post("/admin/upload-simple", g.handleUpload)

		api.NotFound(g.handleNotFound)
		api.MethodNotAllowed(g.handleNotFound)
	})

	r.NotFound(g.handleNotFound)
	r.MethodNotAllowed(g.handleNotFound)
	return r
}

// handleNotFound answers every unmatched path or method. The body is fixed so
// backend routing never leaks.
func (g *Gateway) handleNotFound(w http.ResponseWriter, r *http.Request) {
	stateFrom(r).kind = monitoring.RouteNotFound
	g.metrics.RecordNotFound()
	writeError(w, "Not Found", http.StatusNotFound)
}

// =============================================================================
// PER-REQUEST STATE
// =============================================================================

// requestState is filled in by handlers and read back by accessLog.
type requestState struct {
	peerAddr       string // RemoteAddr before RealIP rewrites it
	kind           monitoring.RouteKind
	upstreamStatus int
	forwardLatency time.Duration
	errMsg         string
}

type stateKey struct{}

func stateFrom(r *http.Request) *requestState {
	if st, ok := r.Context().Value(stateKey{}).(*requestState); ok {
		return st
	}
	return &requestState{}
}

// getRequestID gets or generates a request ID.
func getRequestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	return uuid.New().String()
}

// requestContext attaches the request ID and a fresh requestState.
func (g *Gateway) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := getRequestID(r)
		w.Header().Set(HeaderRequestID, id)

		ctx := monitoring.WithRequestID(r.Context(), id)
		ctx = context.WithValue(ctx, stateKey{}, &requestState{
			peerAddr: r.RemoteAddr,
			kind:     monitoring.RouteLocal,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog logs, counts and records telemetry for each request.
func (g *Gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		total := time.Since(start)
		st := stateFrom(r)
		requestID := monitoring.RequestIDFromContext(r.Context())
		success := status < http.StatusBadRequest

		g.metrics.RecordRequest(success, total)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}

		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("kind", string(st.kind)).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", total).
			Msg("request")

		g.tracker.RecordRequest(&monitoring.RequestEvent{
			RequestID:        requestID,
			Timestamp:        start,
			Method:           r.Method,
			Path:             r.URL.Path,
			Route:            route,
			ClientIP:         r.RemoteAddr,
			Kind:             st.kind,
			HasAuth:          r.Header.Get(HeaderAuthorization) != "",
			RequestBodySize:  r.ContentLength,
			ResponseBodySize: ww.BytesWritten(),
			StatusCode:       status,
			UpstreamStatus:   st.upstreamStatus,
			Success:          success,
			Error:            st.errMsg,
			ForwardLatencyMs: st.forwardLatency.Milliseconds(),
			TotalLatencyMs:   total.Milliseconds(),
		})
	})
}
