package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/studyhall/chat-gateway/internal/store"
)

// Storage keys for the persisted auth state.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// AuthContext holds the current bearer token and user profile and mirrors
// them into a store.Store.
type AuthContext struct {
	store store.Store
	now   func() time.Time

	mu    sync.RWMutex
	token string
	user  *AuthUser
}

// NewAuthContext creates an empty AuthContext backed by st. Call Hydrate to
// load persisted state.
func NewAuthContext(st store.Store) *AuthContext {
	return &AuthContext{store: st, now: time.Now}
}

// Hydrate loads the persisted token and profile. A token that is a JWT with
// an expiry in the past is discarded together with the profile; opaque
// tokens are kept. A token without a readable profile is dropped.
func (a *AuthContext) Hydrate(ctx context.Context) error {
	token, hasToken, err := a.store.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}
	raw, hasUser, err := a.store.Get(ctx, UserKey)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}

	if !hasToken || token == "" {
		if hasUser {
			_ = a.store.Delete(ctx, UserKey)
		}
		a.set("", nil)
		return nil
	}

	if a.expired(token) {
		log.Info().Msg("stored session expired, signing out")
		return a.Logout(ctx)
	}

	var user AuthUser
	if !hasUser || json.Unmarshal([]byte(raw), &user) != nil {
		log.Warn().Msg("stored profile unreadable, signing out")
		return a.Logout(ctx)
	}

	a.set(token, &user)
	return nil
}

// expired reports whether token carries an "exp" claim in the past. The
// signature is not checked; the gateway's backend does that.
func (a *AuthContext) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(a.now())
}

// Login stores token and user in memory and in the store.
func (a *AuthContext) Login(ctx context.Context, token string, user AuthUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := a.store.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	if err := a.store.Set(ctx, UserKey, string(data)); err != nil {
		return err
	}
	a.set(token, &user)
	return nil
}

// Logout clears memory and both storage keys.
func (a *AuthContext) Logout(ctx context.Context) error {
	a.set("", nil)
	if err := a.store.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clearing auth state: %w", err)
	}
	return nil
}

func (a *AuthContext) set(token string, user *AuthUser) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.user = user
}

// Token returns the bearer token, or "".
func (a *AuthContext) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// User returns a copy of the profile, or nil when signed out.
func (a *AuthContext) User() *AuthUser {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsAuthenticated reports whether a token is held.
func (a *AuthContext) IsAuthenticated() bool {
	return a.Token() != ""
}

// IsAdmin reports whether the signed-in user is an admin.
func (a *AuthContext) IsAdmin() bool {
	u := a.User()
	return u != nil && u.IsAdmin
}

// UserID returns the signed-in user's id, or nil when anonymous.
func (a *AuthContext) UserID() *string {
	u := a.User()
	if u == nil || u.ID == "" {
		return nil
	}
	id := u.ID.String()
	return &id
}

// AuthHeader returns "Bearer <token>", or "" when signed out.
func (a *AuthContext) AuthHeader() string {
	if t := a.Token(); t != "" {
		return "Bearer " + t
	}
	return ""
}
