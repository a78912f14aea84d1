package chatclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// sniffLen is how much of a file is read to detect its content type.
const sniffLen = 3072

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadDocument streams r to the gateway as the "file" part of a multipart
// body. simple selects /api/admin/upload-simple.
func (c *Client) UploadDocument(ctx context.Context, simple bool, filename string, r io.Reader) (*UploadResult, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	head = head[:n]
	mtype := mimetype.Detect(head)
	body := io.MultiReader(bytes.NewReader(head), r)

	path := "/api/admin/upload"
	if simple {
		path = "/api/admin/upload-simple"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filepath.Base(filename))))
		h.Set("Content-Type", mtype.String())

		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
		if errors.Is(err, io.ErrClosedPipe) {
			// The request side stopped reading; its error is the one to report.
			return nil
		}
		return err
	})

	var result *UploadResult
	g.Go(func() error {
		defer pr.Close()
		req, err := c.newRequest(gctx, http.MethodPost, path, pr)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		log.Debug().Str("file", filename).Str("mime", mtype.String()).Msg("uploading document")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		var out UploadResult
		if err := decodeResponse(resp, &out); err != nil {
			return err
		}
		result = &out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Uploader is the part of Client UploadForm depends on.
type Uploader interface {
	UploadDocument(ctx context.Context, simple bool, filename string, r io.Reader) (*UploadResult, error)
}

// UploadForm holds the state of a document upload: the selected file, the
// last result and the last error. The selection is cleared only when an
// upload succeeds.
type UploadForm struct {
	uploader Uploader
	simple   bool

	mu        sync.Mutex
	selected  string
	result    *UploadResult
	errText   string
	uploading bool
}

// NewUploadForm creates a form posting to the chunked endpoint, or to the
// simple one when simple is set.
func NewUploadForm(u Uploader, simple bool) *UploadForm {
	return &UploadForm{uploader: u, simple: simple}
}

// Select picks a file and clears the previous result and error.
func (f *UploadForm) Select(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = path
	f.result = nil
	f.errText = ""
	return nil
}

// Selected returns the selected file path, or "".
func (f *UploadForm) Selected() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected
}

// Result returns the last successful result, or nil.
func (f *UploadForm) Result() *UploadResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Err returns the last error text, or "".
func (f *UploadForm) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errText
}

// Submit uploads the selected file.
func (f *UploadForm) Submit(ctx context.Context) (*UploadResult, error) {
	f.mu.Lock()
	path := f.selected
	if path == "" {
		f.errText = "Please select a file first"
		f.mu.Unlock()
		return nil, ErrNoFileSelected
	}
	if f.uploading {
		f.mu.Unlock()
		return nil, errors.New("upload already in progress")
	}
	f.uploading = true
	f.errText = ""
	f.result = nil
	f.mu.Unlock()

	res, err := f.upload(ctx, path)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploading = false
	if err != nil {
		f.errText = err.Error()
		return nil, err
	}
	f.result = res
	f.selected = ""
	return res, nil
}

func (f *UploadForm) upload(ctx context.Context, path string) (*UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.uploader.UploadDocument(ctx, f.simple, filepath.Base(path), file)
}
