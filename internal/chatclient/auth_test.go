package chatclient

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall/chat-gateway/internal/store"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "3",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func seeded(t *testing.T, token, user string) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	if token != "" {
		require.NoError(t, st.Set(ctx, TokenKey, token))
	}
	if user != "" {
		require.NoError(t, st.Set(ctx, UserKey, user))
	}
	return st
}

func TestAuthContext_Hydrate(t *testing.T) {
	const user = `{"id":3,"username":"ana","isAdmin":true}`

	tests := []struct {
		name      string
		token     string
		user      string
		wantToken bool
	}{
		{"valid jwt", signedToken(t, time.Now().Add(time.Hour)), user, true},
		{"expired jwt", signedToken(t, time.Now().Add(-time.Minute)), user, false},
		{"opaque token", "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b", user, true},
		{"token without profile", "opaque", "", false},
		{"unreadable profile", "opaque", "{not json", false},
		{"profile without token", "", user, false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := seeded(t, tt.token, tt.user)
			a := NewAuthContext(st)

			require.NoError(t, a.Hydrate(ctx))
			assert.Equal(t, tt.wantToken, a.IsAuthenticated())

			_, hasToken, _ := st.Get(ctx, TokenKey)
			_, hasUser, _ := st.Get(ctx, UserKey)
			assert.Equal(t, tt.wantToken, hasToken)
			assert.Equal(t, tt.wantToken, hasUser)

			if tt.wantToken {
				assert.Equal(t, "Bearer "+tt.token, a.AuthHeader())
				assert.True(t, a.IsAdmin())
				assert.Equal(t, "ana", a.User().Username)
			} else {
				assert.Empty(t, a.AuthHeader())
				assert.Nil(t, a.User())
				assert.Nil(t, a.UserID())
			}
		})
	}
}

func TestAuthContext_LoginPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer st.Close()

	a := NewAuthContext(st)
	require.NoError(t, a.Login(ctx, "tok", AuthUser{ID: "3", Username: "ana"}))

	b := NewAuthContext(st)
	require.NoError(t, b.Hydrate(ctx))
	assert.Equal(t, "tok", b.Token())
	assert.False(t, b.IsAdmin())
	require.NotNil(t, b.UserID())
	assert.Equal(t, "3", *b.UserID())

	require.NoError(t, b.Logout(ctx))
	c := NewAuthContext(st)
	require.NoError(t, c.Hydrate(ctx))
	assert.False(t, c.IsAuthenticated())
}

func TestAuthContext_UserIsCopied(t *testing.T) {
	a := NewAuthContext(store.NewMemoryStore())
	require.NoError(t, a.Login(context.Background(), "tok", AuthUser{ID: "3", Username: "ana"}))

	u := a.User()
	u.IsAdmin = true
	assert.False(t, a.IsAdmin())
}
