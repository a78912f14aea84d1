// Package upstream forwards gateway calls to the answer backend.
//
// DESIGN: The Forwarder is the only component that talks to the backend.
//   - Forward:       JSON in, JSON (or wrapped text) out, status preserved
//   - ForwardStream: live multipart passthrough through an io.Pipe
//
// Neither path retries. Callers see a Result for every HTTP exchange that
// completed (any status) and an error only when the exchange itself failed.
//
// FILES:
//   - forwarder.go: Forwarder, Forward, response decoding
//   - stream.go:    ForwardStream
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/studyhall/chat-gateway/internal/config"
	"github.com/studyhall/chat-gateway/internal/monitoring"
	"github.com/studyhall/chat-gateway/internal/utils"
)

// Header names shared with the gateway.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderRequestID     = "X-Request-ID"
)

var (
	// ErrTransport means the backend could not be reached or the exchange
	// broke before a complete response was read.
	ErrTransport = errors.New("upstream transport failure")

	// ErrTransferAborted means the inbound upload stream ended early and the
	// outbound request was cancelled.
	ErrTransferAborted = errors.New("upload stream aborted")
)

// Result is one completed backend exchange.
type Result struct {
	Status int
	// Data is the decoded body: a JSON value (numbers as json.Number), or
	// {"message": <raw text>} when the body is not JSON, or {} when empty.
	Data any
	// BytesSent counts request body bytes relayed by ForwardStream.
	BytesSent int64
}

// Failed reports whether the backend answered with an error status.
func (r *Result) Failed() bool {
	return r.Status >= http.StatusBadRequest
}

// Forwarder issues requests against one backend base URL.
type Forwarder struct {
	baseURL         string
	httpClient      *http.Client
	maxResponseSize int64
}

// Option configures the Forwarder.
type Option func(*Forwarder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Forwarder) {
		f.httpClient = c
	}
}

// WithMaxResponseSize caps how many response bytes are read.
func WithMaxResponseSize(n int64) Option {
	return func(f *Forwarder) {
		f.maxResponseSize = n
	}
}

// New creates a Forwarder. dialTimeout bounds connection setup only; calls
// themselves have no deadline beyond the caller's context.
func New(baseURL string, dialTimeout time.Duration, opts ...Option) *Forwarder {
	if dialTimeout <= 0 {
		dialTimeout = config.DefaultDialTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	f := &Forwarder{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		httpClient:      &http.Client{Transport: transport},
		maxResponseSize: config.MaxResponseSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BaseURL returns the backend base URL without a trailing slash.
func (f *Forwarder) BaseURL() string {
	return f.baseURL
}

// Forward sends one JSON request. body may be nil; otherwise it is encoded
// without HTML escaping. authHeader, when non-empty, is copied verbatim.
// path may carry a query string.
func (f *Forwarder) Forward(ctx context.Context, method, path string, body any, authHeader string) (*Result, error) {
	targetURL := f.baseURL + path

	var reader io.Reader
	if body != nil {
		data, err := utils.MarshalNoEscape(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if reader != nil {
		req.Header.Set(HeaderContentType, "application/json")
	}
	req.Header.Set("Accept", "application/json")
	setCommonHeaders(ctx, req, authHeader)

	log.Debug().
		Str("method", method).
		Str("targetURL", targetURL).
		Str("authorization", utils.MaskAuthorization(authHeader)).
		Msg("forwarding request")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("targetURL", targetURL).Msg("upstream request failed")
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return f.readResult(resp, targetURL)
}

func (f *Forwarder) readResult(resp *http.Response, targetURL string) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("targetURL", targetURL).
			Str("response", utils.Truncate(string(data), config.MaxErrorBodyLogLen)).
			Msg("upstream error response")
	}

	return &Result{Status: resp.StatusCode, Data: DecodeBody(data)}, nil
}

// DecodeBody parses a backend body. It never fails: empty bodies become {},
// and anything that is not one JSON document becomes {"message": text}.
func DecodeBody(data []byte) any {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]any{}
	}
	if gjson.ValidBytes(trimmed) {
		if v, err := utils.DecodeNumberPreserving(trimmed); err == nil {
			return v
		}
	}
	return map[string]any{"message": string(data)}
}

func setCommonHeaders(ctx context.Context, req *http.Request, authHeader string) {
	if authHeader != "" {
		req.Header.Set(HeaderAuthorization, authHeader)
	}
	if id := monitoring.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}
}
