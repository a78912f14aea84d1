package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/studyhall/chat-gateway/internal/utils"
)

// DefaultGatewayURL is where the client looks for the gateway.
const DefaultGatewayURL = "http://localhost:5000"

// =============================================================================
// Client
// =============================================================================

// Client calls the gateway's /api surface. When an AuthContext is attached,
// its bearer token is sent on every call.
type Client struct {
	baseURL    string
	auth       *AuthContext
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout. Zero means none.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = timeout
	}
}

// WithAuth attaches an AuthContext.
func WithAuth(a *AuthContext) ClientOption {
	return func(client *Client) {
		client.auth = a
	}
}

// NewClient creates a gateway client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "studyhall-client/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Auth returns the attached AuthContext, or nil.
func (c *Client) Auth() *AuthContext {
	return c.auth
}

// =============================================================================
// CHAT SESSIONS
// =============================================================================

// ListSessions fetches sessions. An empty userID leaves the scope to the
// backend.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	path := "/api/chat-sessions"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var out []ChatSession
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession creates a session. A nil userID is sent as null.
func (c *Client) CreateSession(ctx context.Context, title string, userID *string) (*ChatSession, error) {
	payload := struct {
		Title  string  `json:"title"`
		UserID *string `json:"userId"`
	}{title, userID}

	var out ChatSession
	if err := c.do(ctx, http.MethodPost, "/api/chat-sessions", payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("create session: %w", ErrUnexpectedResponse)
	}
	return &out, nil
}

// RenameSession sets a session's title.
func (c *Client) RenameSession(ctx context.Context, id ID, title string) (*ChatSession, error) {
	var out ChatSession
	if err := c.do(ctx, http.MethodPatch, sessionPath(id, ""), map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, id ID) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages fetches a session's messages in backend order.
func (c *Client) ListMessages(ctx context.Context, sessionID ID) ([]Message, error) {
	var out []Message
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/messages"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMessage appends a message to a session.
func (c *Client) CreateMessage(ctx context.Context, sessionID ID, content string, role Role) (*Message, error) {
	payload := map[string]string{
		"sessionId": sessionID.String(),
		"content":   content,
		"role":      string(role),
	}
	var out Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// AUTH
// =============================================================================

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", credentials(username, password), nil)
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials(username, password), &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User == nil {
		return nil, fmt.Errorf("login: %w", ErrUnexpectedResponse)
	}
	return &out, nil
}

// SignIn optionally registers, then logs in and stores the result in the
// attached AuthContext.
func (c *Client) SignIn(ctx context.Context, username, password string, register bool) (*AuthUser, error) {
	if register {
		if err := c.Register(ctx, username, password); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
	}
	resp, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if c.auth != nil {
		if err := c.auth.Login(ctx, resp.Token, *resp.User); err != nil {
			return nil, err
		}
	}
	return resp.User, nil
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*AuthUser, error) {
	var out AuthUser
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the backend, then clears local auth state whatever the
// backend answered. The backend error, if any, is returned.
func (c *Client) Logout(ctx context.Context) error {
	remoteErr := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if c.auth != nil {
		if err := c.auth.Logout(ctx); err != nil {
			return err
		}
	}
	return remoteErr
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func sessionPath(id ID, suffix string) string {
	return "/api/chat-sessions/" + url.PathEscape(id.String()) + suffix
}

// =============================================================================
// HTTP Helpers
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.auth != nil {
		if h := c.auth.AuthHeader(); h != "" {
			req.Header.Set("Authorization", h)
		}
	}
	return req, nil
}

// do sends payload (if any) as JSON and decodes a 2xx body into result (if
// non-nil). Non-2xx answers become *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := utils.MarshalNoEscape(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func decodeResponse(resp *http.Response, result any) error {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// errorMessage picks the most useful text out of an error body.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"message", "detail", "error"} {
			if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return utils.Truncate(text, 200)
	}
	return http.StatusText(status)
}
