// Package chatclient is the client side of the chat gateway.
//
// DESIGN: The pieces mirror what a chat UI needs, without the UI:
//   - Client:       typed calls for every gateway endpoint
//   - AuthContext:  bearer token + profile, hydrated from durable storage
//   - QueryCache:   read-through cache keyed by endpoint, explicit invalidation
//   - Synchronizer: the send protocol (create session if absent, create
//     message, invalidate, delayed re-fetch for the assistant reply)
//   - UploadForm:   document selection and upload state
//
// FILES:
//   - types.go:  wire types and errors
//   - client.go: Client and HTTP helpers
//   - auth.go:   AuthContext
//   - cache.go:  QueryCache
//   - sync.go:   Synchronizer
//   - upload.go: UploadForm and the streaming multipart upload
package chatclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ID is an opaque backend identifier. The backend may encode it as a JSON
// string or number; either decodes to the same textual form.
type ID string

// UnmarshalJSON accepts strings and numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the ID as text.
func (id ID) String() string { return string(id) }

// ChatSession is a named conversation thread. UserID is nil for anonymous
// sessions.
type ChatSession struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	UserID    *ID       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one immutable chat message.
type Message struct {
	ID        ID        `json:"id"`
	SessionID ID        `json:"sessionId"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthUser is the signed-in user's profile.
type AuthUser struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token string    `json:"token"`
	User  *AuthUser `json:"user"`
}

// UploadResult is the backend's answer to a document upload.
type UploadResult struct {
	Success bool   `json:"success"`
	Chunks  int    `json:"chunks,omitempty"`
	Message string `json:"message,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnexpectedResponse means a 2xx body lacked required fields.
	ErrUnexpectedResponse = errors.New("unexpected response from server")
	// ErrSendInProgress is returned by Send while another send is pending.
	ErrSendInProgress = errors.New("a message is already being sent")
	// ErrEmptyMessage is returned by Send when the composer is blank.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrComposerTooLong is returned by SetComposer past MaxMessageLength.
	ErrComposerTooLong = errors.New("message too long")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("synchronizer closed")
	// ErrNoFileSelected is returned by UploadForm.Submit without a selection.
	ErrNoFileSelected = errors.New("please select a file first")
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
