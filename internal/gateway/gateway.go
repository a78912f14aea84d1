// Package gateway is the public HTTP surface in front of the answer backend.
//
// DESIGN: Every /api route is one of three shapes:
//   - JSON forward:  validate (mutations only) → Forward → translate keys
//   - auth forward:  raw JSON body → Forward → translate keys
//   - upload:        bearer policy → ForwardStream → relay unmodified
//
// Backend error statuses and bodies are relayed verbatim; the router is the
// only place where transport failures become client-visible statuses.
// Anything else under /api answers 404 {"message":"Not Found"}.
//
// FILES:
//   - gateway.go:    Gateway, construction, Serve
//   - router.go:     route table and middleware
//   - sessions.go:   chat session and message handlers
//   - auth.go:       auth passthrough handlers
//   - upload.go:     streamed upload handlers
//   - validation.go: 422 shape checks
//   - response.go:   JSON writers, relay, failure mapping
//   - stats.go:      /health and /stats
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/studyhall/chat-gateway/internal/config"
	"github.com/studyhall/chat-gateway/internal/monitoring"
	"github.com/studyhall/chat-gateway/internal/upstream"
)

// Header names.
const (
	HeaderRequestID     = upstream.HeaderRequestID
	HeaderAuthorization = upstream.HeaderAuthorization
)

// Gateway routes client calls to the backend.
type Gateway struct {
	config    *config.Config
	forwarder *upstream.Forwarder
	metrics   *monitoring.MetricsCollector
	tracker   *monitoring.Tracker
	validate  *validator.Validate
	router    chi.Router
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithForwarder replaces the backend forwarder.
func WithForwarder(f *upstream.Forwarder) Option {
	return func(g *Gateway) {
		g.forwarder = f
	}
}

// WithMetrics shares a metrics collector with the caller.
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(g *Gateway) {
		g.metrics = mc
	}
}

// New creates a gateway for cfg. A nil cfg means config.Default().
func New(cfg *config.Config, opts ...Option) *Gateway {
	if cfg == nil {
		cfg = config.Default()
	}

	g := &Gateway{
		config:   cfg,
		metrics:  monitoring.NewMetricsCollector(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.forwarder == nil {
		g.forwarder = upstream.New(cfg.Backend.BaseURL, cfg.Backend.DialTimeout)
	}

	tracker, err := monitoring.NewTracker(cfg.Telemetry())
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Monitoring.TelemetryPath).Msg("telemetry disabled")
		tracker = nil
	}
	g.tracker = tracker

	g.router = g.routes()
	return g
}

// Handler returns the gateway's HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Metrics returns the gateway's metrics collector.
func (g *Gateway) Metrics() *monitoring.MetricsCollector {
	return g.metrics
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully within the configured shutdown timeout.
func (g *Gateway) Serve(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(g.config.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return g.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (g *Gateway) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: g.config.Server.ReadHeaderTimeout,
		WriteTimeout:      g.config.Server.WriteTimeout,
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info().
			Str("addr", ln.Addr().String()).
			Str("backend", g.forwarder.BaseURL()).
			Bool("upload_requires_auth", g.config.UploadRequiresAuth()).
			Msg("gateway listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.config.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("gateway shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := grp.Wait()
	_ = g.Close()
	return err
}

// Close flushes telemetry.
func (g *Gateway) Close() error {
	return g.tracker.Close()
}
