// Gateway tests - HTTP server testing against a mock backend.
//
// Test flow:
//  1. Start a mock backend that records every call it receives
//  2. Start the gateway with backend.base_url pointing at the mock
//  3. Call the gateway's /api surface and check both sides
package gateway_test

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/chat-gateway/internal/config"
	"github.com/studyhall/chat-gateway/internal/gateway"
	"github.com/studyhall/chat-gateway/internal/monitoring"
)

// =============================================================================
// HELPERS
// =============================================================================

type backendCall struct {
	Method      string
	Path        string
	RawQuery    string
	Body        string
	Auth        string
	ContentType string
}

type mockBackend struct {
	*httptest.Server
	mu    sync.Mutex
	calls []backendCall
}

func (m *mockBackend) Calls() []backendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backendCall(nil), m.calls...)
}

// newMockBackend records each request, then delegates to handler.
func newMockBackend(t *testing.T, handler http.HandlerFunc) *mockBackend {
	t.Helper()
	m := &mockBackend{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		m.mu.Lock()
		m.calls = append(m.calls, backendCall{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			Body:        string(body),
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
		})
		m.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func testConfig(backendURL string) *config.Config {
	cfg := config.Default()
	cfg.Backend.BaseURL = backendURL
	cfg.Backend.DialTimeout = time.Second
	return cfg
}

func newGateway(t *testing.T, backendURL string) (*gateway.Gateway, *httptest.Server) {
	t.Helper()
	gw := gateway.New(testConfig(backendURL))
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	return gw, srv
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func jsonResponder(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// =============================================================================
// CHAT SESSIONS
// =============================================================================

func TestGateway_CreateSession_TranslatesUserID(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK,
		`{"id":"s1","title":"Algebra help","user_id":"u1","created_at":"2024-05-01T10:00:00Z","updated_at":"2024-05-01T10:00:00Z"}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/chat-sessions",
		`{"title":"Algebra help","userId":"u1"}`, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s1", out["id"])
	assert.Equal(t, "Algebra help", out["title"])
	assert.Equal(t, "u1", out["userId"])
	assert.NotContains(t, out, "user_id")
	assert.Contains(t, out, "createdAt")
	assert.Contains(t, out, "updatedAt")

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/api/chat-sessions", calls[0].Path)
	assert.Equal(t, "application/json", calls[0].ContentType)
	assert.JSONEq(t, `{"title":"Algebra help","user_id":"u1"}`, calls[0].Body)
}

func TestGateway_CreateSession_NullUserID(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{"id":"s2","title":"","user_id":null}`))
	_, gw := newGateway(t, backend.URL)

	for _, body := range []string{`{"title":""}`, `{"title":"","userId":null}`} {
		resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/chat-sessions", body, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, out, "userId")
		assert.Nil(t, out["userId"])
	}

	for _, call := range backend.Calls() {
		assert.JSONEq(t, `{"title":"","user_id":null}`, call.Body)
	}
}

func TestGateway_CreateSession_ValidationNeverForwarded(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{}`))
	_, gw := newGateway(t, backend.URL)

	tests := []struct {
		name      string
		body      string
		wantPaths []string
	}{
		{"missing title", `{"userId":"u1"}`, []string{"title"}},
		{"title wrong type", `{"title":42}`, []string{"title"}},
		{"userId wrong type", `{"title":"x","userId":7}`, []string{"userId"}},
		{"empty body", ``, []string{"title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/chat-sessions", tt.body, nil)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, "Invalid session data", out["message"])

			issues, ok := out["issues"].([]any)
			require.True(t, ok)
			var paths []string
			for _, is := range issues {
				p := is.(map[string]any)["path"].([]any)
				require.Len(t, p, 1)
				paths = append(paths, p[0].(string))
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
	assert.Empty(t, backend.Calls())
}

func TestGateway_ListSessions_ForwardsUserIDAndAuth(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK,
		`[{"id":"a","user_id":"u1","updated_at":"t2"},{"id":"b","user_id":"u1","updated_at":"t1"}]`))
	_, gw := newGateway(t, backend.URL)

	req, err := http.NewRequest(http.MethodGet, gw.URL+"/api/chat-sessions?userId=u%201", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0]["id"])
	assert.Equal(t, "b", list[1]["id"])
	assert.Equal(t, "u1", list[1]["userId"])
	assert.Equal(t, "t1", list[1]["updatedAt"])

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "userId=u+1", calls[0].RawQuery)
	assert.Equal(t, "Bearer tok", calls[0].Auth)
}

func TestGateway_RenameAndDeleteSession(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			jsonResponder(http.StatusOK, `{"id":"s1","title":"Renamed","updated_at":"now"}`)(w, r)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPatch, gw.URL+"/api/chat-sessions/s1", `{"title":"Renamed"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Renamed", out["title"])
	assert.Equal(t, "now", out["updatedAt"])

	resp, _ = doJSON(t, http.MethodPatch, gw.URL+"/api/chat-sessions/s1", `{"name":"x"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, gw.URL+"/api/chat-sessions/s1", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	calls := backend.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/api/chat-sessions/s1", calls[0].Path)
	assert.JSONEq(t, `{"title":"Renamed"}`, calls[0].Body)
	assert.Equal(t, http.MethodDelete, calls[1].Method)
}

func TestGateway_CreatedStatusAnsweredAsOK(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			jsonResponder(http.StatusCreated, `{"id":"x1","created_at":"now"}`)(w, r)
		case r.Method == http.MethodPatch:
			jsonResponder(http.StatusAccepted, `{"id":"s1","title":"T"}`)(w, r)
		default:
			jsonResponder(http.StatusCreated, `[]`)(w, r)
		}
	})
	_, gw := newGateway(t, backend.URL)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"list sessions", http.MethodGet, "/api/chat-sessions", "", http.StatusOK},
		{"create session", http.MethodPost, "/api/chat-sessions", `{"title":"T"}`, http.StatusOK},
		{"list messages", http.MethodGet, "/api/chat-sessions/s1/messages", "", http.StatusOK},
		{"create message", http.MethodPost, "/api/messages", `{"sessionId":"s1","content":"hi","role":"user"}`, http.StatusOK},
		{"rename keeps backend status", http.MethodPatch, "/api/chat-sessions/s1", `{"title":"T"}`, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, tt.method, gw.URL+tt.path, tt.body, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/chat-sessions", `{"title":"T"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "now", out["createdAt"])
}

func TestGateway_BackendErrorRelayedVerbatim(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusNotFound, `{"detail":"Session not found","error_code":"x"}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodGet, gw.URL+"/api/chat-sessions/missing/messages", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Session not found", out["detail"])
	assert.Contains(t, out, "error_code")
}

func TestGateway_BackendTextErrorWrapped(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal Server Error"))
	})
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodGet, gw.URL+"/api/chat-sessions", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", out["message"])
}

func TestGateway_TransportErrorIsGeneric(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	_, gw := newGateway(t, url)

	resp, out := doJSON(t, http.MethodGet, gw.URL+"/api/chat-sessions", "", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Failed to fetch chat sessions", out["message"])
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestGateway_CreateMessage(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK,
		`{"id":"m1","session_id":"s1","content":"Solve x+2=5","role":"user","created_at":"now"}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/messages",
		`{"sessionId":"s1","content":"Solve x+2=5","role":"user","extra":"dropped"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user", out["role"])
	assert.Equal(t, "Solve x+2=5", out["content"])
	assert.Equal(t, "s1", out["sessionId"])

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"sessionId":"s1","content":"Solve x+2=5","role":"user"}`, calls[0].Body)
}

func TestGateway_CreateMessage_MissingRole(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/messages",
		`{"sessionId":"s1","content":"hi"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Invalid message data", out["message"])
	issues := out["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, []any{"role"}, issues[0].(map[string]any)["path"])
	assert.Empty(t, backend.Calls())
}

func TestGateway_CreateMessage_BadRole(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/messages",
		`{"sessionId":"s1","content":"hi","role":"system"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	issue := out["issues"].([]any)[0].(map[string]any)
	assert.Equal(t, "invalid_enum_value", issue["code"])
	assert.Contains(t, issue["message"], "'user' | 'assistant'")
	assert.Empty(t, backend.Calls())
}

func TestGateway_InvalidJSONBody(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/messages", `{"sessionId":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON body", out["message"])
	assert.Empty(t, backend.Calls())
}

// =============================================================================
// AUTH
// =============================================================================

func TestGateway_AuthLogin_PassthroughAndTranslate(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK,
		`{"token":"jwt","user":{"id":"u1","username":"ada","is_admin":true}}`))
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodPost, gw.URL+"/api/auth/login",
		`{"username":"ada","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jwt", out["token"])
	assert.Equal(t, true, out["user"].(map[string]any)["isAdmin"])

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/auth/login", calls[0].Path)
	assert.JSONEq(t, `{"username":"ada","password":"pw"}`, calls[0].Body)
}

func TestGateway_AuthMe_RequiresBackendDecision(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			jsonResponder(http.StatusUnauthorized, `{"detail":"Not authenticated"}`)(w, r)
			return
		}
		jsonResponder(http.StatusOK, `{"id":"u1","username":"ada","is_admin":false}`)(w, r)
	})
	_, gw := newGateway(t, backend.URL)

	resp, out := doJSON(t, http.MethodGet, gw.URL+"/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authenticated", out["detail"])

	resp, out = doJSON(t, http.MethodGet, gw.URL+"/api/auth/me", "", map[string]string{"Authorization": "Bearer jwt"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["isAdmin"])
}

func TestGateway_AuthLogout_EmptyBody(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{"ok":true}`))
	_, gw := newGateway(t, backend.URL)

	resp, _ := doJSON(t, http.MethodPost, gw.URL+"/api/auth/logout", "", map[string]string{"Authorization": "Bearer jwt"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Body)
	assert.Empty(t, calls[0].ContentType)
	assert.Equal(t, "Bearer jwt", calls[0].Auth)
}

// =============================================================================
// UPLOADS
// =============================================================================

func multipartBody(t *testing.T, filename, content string) (string, string) {
	t.Helper()
	var sb strings.Builder
	mw := multipart.NewWriter(&sb)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(t, mw.Close())
	return sb.String(), mw.FormDataContentType()
}

func postUpload(t *testing.T, url, auth, filename string) (*http.Response, map[string]any) {
	t.Helper()
	body, ct := multipartBody(t, filename, "%PDF-1.4 lecture notes")
	headers := map[string]string{"Content-Type": ct}
	if auth != "" {
		headers["Authorization"] = auth
	}
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestGateway_Upload_StreamsUnmodified(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{"success":true,"chunks":7,"doc_id":"d1"}`))
	_, gw := newGateway(t, backend.URL)

	for _, path := range []string{"/api/admin/upload", "/api/admin/upload-simple"} {
		resp, out := postUpload(t, gw.URL+path, "Bearer admin", "notes.pdf")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, out["success"])
		// upload responses are not key-translated
		assert.Equal(t, "d1", out["doc_id"])
	}

	calls := backend.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/api/admin/upload", calls[0].Path)
	assert.Equal(t, "/api/admin/upload-simple", calls[1].Path)
	for _, c := range calls {
		assert.True(t, strings.HasPrefix(c.ContentType, "multipart/form-data; boundary="))
		assert.Equal(t, "Bearer admin", c.Auth)
		assert.Contains(t, c.Body, "lecture notes")
	}
}

func TestGateway_Upload_RequiresBearerOnBothPaths(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{"success":true}`))
	_, gw := newGateway(t, backend.URL)

	for _, path := range []string{"/api/admin/upload", "/api/admin/upload-simple"} {
		resp, out := postUpload(t, gw.URL+path, "", "notes.pdf")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Authentication required", out["message"])
	}
	assert.Empty(t, backend.Calls())
}

func TestGateway_Upload_PolicyDisabled(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{"success":true}`))
	cfg := testConfig(backend.URL)
	off := false
	cfg.Uploads.RequireAuth = &off
	srv := httptest.NewServer(gateway.New(cfg).Handler())
	defer srv.Close()

	resp, _ := postUpload(t, srv.URL+"/api/admin/upload-simple", "", "notes.pdf")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, backend.Calls(), 1)
	assert.Empty(t, backend.Calls()[0].Auth)
}

func TestGateway_Upload_BackendRejection(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		_, _ = w.Write([]byte("Unsupported file type"))
	})
	_, gw := newGateway(t, backend.URL)

	resp, out := postUpload(t, gw.URL+"/api/admin/upload", "Bearer admin", "virus.exe")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "Unsupported file type", out["message"])
}

// =============================================================================
// ROUTING, HEALTH, STATS
// =============================================================================

func TestGateway_NotFound(t *testing.T) {
	backend := newMockBackend(t, jsonResponder(http.StatusOK, `{}`))
	_, gw := newGateway(t, backend.URL)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/unknown"},
		{http.MethodGet, "/api/admin/secret-internal-route"},
		{http.MethodPut, "/api/messages"},
		{http.MethodGet, "/api/messages"},
		{http.MethodPost, "/api/chat-sessions/s1/messages"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, out := doJSON(t, tt.method, gw.URL+tt.path, "", nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, map[string]any{"message": "Not Found"}, out)
		})
	}
	assert.Empty(t, backend.Calls())
}

func TestGateway_RequestIDEchoed(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-abc", r.Header.Get("X-Request-ID"))
		jsonResponder(http.StatusOK, `[]`)(w, r)
	})
	_, gw := newGateway(t, backend.URL)

	resp, _ := doJSON(t, http.MethodGet, gw.URL+"/api/chat-sessions", "", map[string]string{"X-Request-ID": "req-abc"})
	assert.Equal(t, "req-abc", resp.Header.Get("X-Request-ID"))

	resp, _ = doJSON(t, http.MethodGet, gw.URL+"/health", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGateway_Health(t *testing.T) {
	_, gw := newGateway(t, "http://127.0.0.1:8000")

	resp, out := doJSON(t, http.MethodGet, gw.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "http://127.0.0.1:8000", out["backend"])
}

func TestGateway_Stats_CountsOutcomes(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat-sessions/gone/messages" {
			jsonResponder(http.StatusNotFound, `{"detail":"gone"}`)(w, r)
			return
		}
		jsonResponder(http.StatusOK, `[]`)(w, r)
	})
	_, gw := newGateway(t, backend.URL)

	doJSON(t, http.MethodGet, gw.URL+"/api/chat-sessions", "", nil)
	doJSON(t, http.MethodGet, gw.URL+"/api/chat-sessions/gone/messages", "", nil)
	doJSON(t, http.MethodPost, gw.URL+"/api/messages", `{}`, nil)
	doJSON(t, http.MethodGet, gw.URL+"/api/nope", "", nil)
	postUpload(t, gw.URL+"/api/admin/upload", "", "a.pdf")

	resp, err := http.Get(gw.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats monitoring.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(5), stats.Requests.Total)
	assert.Equal(t, int64(1), stats.Requests.Successful)
	assert.Equal(t, int64(1), stats.Requests.NotFound)
	assert.Equal(t, int64(1), stats.Rejections.Validation)
	assert.Equal(t, int64(1), stats.Rejections.AuthDenied)
	assert.Equal(t, int64(1), stats.Upstream.ErrorResponses)
}

func TestGateway_Stats_LoopbackOnly(t *testing.T) {
	gw := gateway.New(testConfig("http://127.0.0.1:8000"))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("X-Real-IP", "127.0.0.1")
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	w = httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
