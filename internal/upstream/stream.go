package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/studyhall/chat-gateway/internal/utils"
)

// countingReader counts bytes as the copier pulls them from the client and
// remembers the first read failure, so a dropped client is told apart from
// the outbound side closing the pipe.
type countingReader struct {
	r       io.Reader
	n       atomic.Int64
	readErr error
}

// StreamOption configures a single ForwardStream call.
type StreamOption func(*streamOptions)

type streamOptions struct {
	interrupt func()
}

// WithInterrupt sets fn to unblock a read of the inbound body that is still
// pending once the backend has answered, e.g. by expiring its read deadline.
func WithInterrupt(fn func()) StreamOption {
	return func(o *streamOptions) {
		o.interrupt = fn
	}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	if err != nil && err != io.EOF && c.readErr == nil {
		c.readErr = err
	}
	return n, err
}

// ForwardStream relays the inbound request body to the backend as a live
// stream. Content-Type (with its multipart boundary) and Authorization are
// propagated; the body is never held in memory as a whole.
//
// If the inbound stream fails before EOF, the outbound request is cancelled
// and the error wraps ErrTransferAborted.
//
// ForwardStream does not return while the inbound body is still being read.
// When the backend answers before consuming the whole body, the copy is
// stopped and, if it is parked in a read, the WithInterrupt hook runs.
func (f *Forwarder) ForwardStream(ctx context.Context, path string, in *http.Request, opts ...StreamOption) (*Result, error) {
	targetURL := f.baseURL + path

	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	pr, pw := io.Pipe()
	copyDone := make(chan struct{})
	defer func() {
		_ = pr.Close()
		select {
		case <-copyDone:
		default:
			if o.interrupt != nil {
				o.interrupt()
			}
			<-copyDone
		}
	}()

	src := &countingReader{r: in.Body}
	go func() {
		defer close(copyDone)
		_, err := io.Copy(pw, src)
		if src.readErr != nil {
			cancel(ErrTransferAborted)
			_ = pw.CloseWithError(fmt.Errorf("%w: %w", ErrTransferAborted, src.readErr))
			return
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, pr)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if in.ContentLength > 0 {
		req.ContentLength = in.ContentLength
	}
	if ct := in.Header.Get(HeaderContentType); ct != "" {
		req.Header.Set(HeaderContentType, ct)
	}
	authHeader := in.Header.Get(HeaderAuthorization)
	setCommonHeaders(ctx, req, authHeader)

	log.Info().
		Str("targetURL", targetURL).
		Int64("content_length", in.ContentLength).
		Str("authorization", utils.MaskAuthorization(authHeader)).
		Msg("streaming upload")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrTransferAborted) || errors.Is(err, ErrTransferAborted) || in.Context().Err() != nil {
			log.Warn().Err(err).Int64("bytes_relayed", src.n.Load()).Str("targetURL", targetURL).Msg("upload aborted mid-transfer")
			return nil, fmt.Errorf("%w after %d bytes", ErrTransferAborted, src.n.Load())
		}
		log.Error().Err(err).Str("targetURL", targetURL).Msg("upstream upload failed")
		return nil, fmt.Errorf("%w: POST %s: %w", ErrTransport, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	result, err := f.readResult(resp, targetURL)
	if err != nil {
		return nil, err
	}
	result.BytesSent = src.n.Load()
	return result, nil
}
