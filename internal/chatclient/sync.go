package chatclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	// MaxMessageLength caps composer text, in characters.
	MaxMessageLength = 2000
	// TitleLength is how many characters of the first message become the
	// provisional session title.
	TitleLength = 50
	// DefaultRefreshDelay is the wait before re-fetching messages to pick up
	// the assistant's reply.
	DefaultRefreshDelay = 1500 * time.Millisecond
	// DefaultSessionTitle is used by NewSession when no title is given.
	DefaultSessionTitle = "New Chat"
)

// ChatAPI is the part of Client the Synchronizer depends on.
type ChatAPI interface {
	CreateSession(ctx context.Context, title string, userID *string) (*ChatSession, error)
	CreateMessage(ctx context.Context, sessionID ID, content string, role Role) (*Message, error)
	ListSessions(ctx context.Context, userID string) ([]ChatSession, error)
	ListMessages(ctx context.Context, sessionID ID) ([]Message, error)
}

// Toast is a user-visible notification.
type Toast struct {
	Title       string
	Description string
	Destructive bool
}

// Notifier shows toasts.
type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

// Notify calls f.
func (f NotifierFunc) Notify(t Toast) { f(t) }

type discardNotifier struct{}

func (discardNotifier) Notify(Toast) {}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithRefreshDelay sets the delayed re-fetch wait.
func WithRefreshDelay(d time.Duration) SyncOption {
	return func(s *Synchronizer) { s.delay = d }
}

// WithNotifier sets where failures are reported.
func WithNotifier(n Notifier) SyncOption {
	return func(s *Synchronizer) { s.notifier = n }
}

// WithAuthContext sets whose user id new sessions are created for.
func WithAuthContext(a *AuthContext) SyncOption {
	return func(s *Synchronizer) { s.auth = a }
}

// Synchronizer owns the composer and the current session, and runs the send
// protocol: create the session if there is none, then create the message,
// then invalidate the affected queries and schedule one delayed re-fetch of
// the session's messages.
type Synchronizer struct {
	api      ChatAPI
	cache    *QueryCache
	auth     *AuthContext
	notifier Notifier
	delay    time.Duration

	mu       sync.Mutex
	composer string
	current  *ChatSession
	sending  bool
	closed   bool
	timers   map[*time.Timer]struct{}
	inflight sync.WaitGroup
}

// NewSynchronizer creates a Synchronizer with no current session.
func NewSynchronizer(api ChatAPI, cache *QueryCache, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		api:      api,
		cache:    cache,
		notifier: discardNotifier{},
		delay:    DefaultRefreshDelay,
		timers:   make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// COMPOSER AND SESSION SELECTION
// =============================================================================

// SetComposer replaces the composer text.
func (s *Synchronizer) SetComposer(text string) error {
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return fmt.Errorf("%w: %d characters max", ErrComposerTooLong, MaxMessageLength)
	}
	s.mu.Lock()
	s.composer = text
	s.mu.Unlock()
	return nil
}

// Composer returns the composer text.
func (s *Synchronizer) Composer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composer
}

// CurrentSession returns the current session, or nil.
func (s *Synchronizer) CurrentSession() *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// SelectSession makes sess current.
func (s *Synchronizer) SelectSession(sess ChatSession) {
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
}

// NewChat clears the current session; the next Send creates one.
func (s *Synchronizer) NewChat() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// NewSession creates a session explicitly and makes it current.
func (s *Synchronizer) NewSession(ctx context.Context, title string) (*ChatSession, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultSessionTitle
	}
	sess, err := s.api.CreateSession(ctx, title, s.userID())
	if err != nil {
		s.fail("Failed to create chat session.")
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.cache.Invalidate(SessionsKey)
	s.SelectSession(*sess)
	return sess, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Sessions returns the session list through the cache.
func (s *Synchronizer) Sessions(ctx context.Context) ([]ChatSession, error) {
	v, err := s.cache.Fetch(ctx, SessionsKey, func(ctx context.Context) (any, error) {
		userID := ""
		if id := s.userID(); id != nil {
			userID = *id
		}
		return s.api.ListSessions(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ChatSession), nil
}

// Messages returns a session's messages through the cache.
func (s *Synchronizer) Messages(ctx context.Context, sessionID ID) ([]Message, error) {
	v, err := s.cache.Fetch(ctx, MessagesKey(sessionID), func(ctx context.Context) (any, error) {
		return s.api.ListMessages(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Message), nil
}

// =============================================================================
// SEND
// =============================================================================

// Send submits the composer text to the current session, creating a session
// first when there is none. On success the composer is cleared; on failure
// it is kept and a toast is shown.
func (s *Synchronizer) Send(ctx context.Context) (*Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.sending {
		s.mu.Unlock()
		return nil, ErrSendInProgress
	}
	text := strings.TrimSpace(s.composer)
	if text == "" {
		s.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	s.sending = true
	var sessionID ID
	if s.current != nil {
		sessionID = s.current.ID
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	if sessionID == "" {
		sess, err := s.api.CreateSession(ctx, ProvisionalTitle(text), s.userID())
		if err != nil {
			s.fail("Failed to create chat session.")
			return nil, fmt.Errorf("creating session: %w", err)
		}
		sessionID = sess.ID
		s.SelectSession(*sess)
		s.cache.Invalidate(SessionsKey)
		log.Debug().Str("session_id", sessionID.String()).Msg("session created for first message")
	}

	msg, err := s.api.CreateMessage(ctx, sessionID, text, RoleUser)
	if err != nil {
		s.fail("Failed to send message. Please try again.")
		return nil, fmt.Errorf("sending message: %w", err)
	}

	s.mu.Lock()
	s.composer = ""
	s.mu.Unlock()

	s.cache.Invalidate(MessagesKey(sessionID), SessionsKey)
	s.scheduleRefresh(sessionID)
	return msg, nil
}

// scheduleRefresh arranges one delayed invalidation of sessionID's messages.
// sessionID is fixed now; later session switches do not retarget it.
func (s *Synchronizer) scheduleRefresh(sessionID ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.timers, t)
		s.inflight.Add(1)
		s.mu.Unlock()

		defer s.inflight.Done()
		s.cache.Invalidate(MessagesKey(sessionID))
	})
	s.timers[t] = struct{}{}
}

// PendingRefreshes returns how many delayed re-fetches have not fired yet.
func (s *Synchronizer) PendingRefreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels pending re-fetches and waits for any that already started.
// No re-fetch fires after Close returns.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
	s.mu.Unlock()

	s.inflight.Wait()
}

func (s *Synchronizer) userID() *string {
	if s.auth == nil {
		return nil
	}
	return s.auth.UserID()
}

func (s *Synchronizer) fail(description string) {
	s.notifier.Notify(Toast{Title: "Error", Description: description, Destructive: true})
}

// ProvisionalTitle derives a session title from the first message: its
// first TitleLength characters, with "..." appended when cut.
func ProvisionalTitle(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= TitleLength {
		return text
	}
	return string([]rune(text)[:TitleLength]) + "..."
}
