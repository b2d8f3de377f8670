package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munigestion/munigestion/internal/shared"
)

func authMiddlewareFixture(t *testing.T) (Middleware, *TokenManager, *Denylist) {
	t.Helper()
	tokens, err := NewTokenManager(testSecret, time.Hour, "munigestion")
	require.NoError(t, err)
	denylist, _ := testDenylist(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return Middleware{Tokens: tokens, Denylist: denylist, Logger: logger}, tokens, denylist
}

func identityEcho(t *testing.T, got *shared.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := shared.IdentityFromContext(r.Context())
		require.True(t, ok)
		*got = identity
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	m, tokens, _ := authMiddlewareFixture(t)
	raw, claims, err := tokens.Issue(testAccount(), time.Now().UTC())
	require.NoError(t, err)

	var got shared.Identity
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	m.Authenticate(identityEcho(t, &got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, claims.ID, got.TokenID)
}

func TestAuthenticateRejectsMissingOrBadToken(t *testing.T) {
	m, _, _ := authMiddlewareFixture(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	for _, header := range []string{"", "Bearer", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		m.Authenticate(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestAuthenticateRejectsDenylistedToken(t *testing.T) {
	m, tokens, denylist := authMiddlewareFixture(t)
	raw, claims, err := tokens.Issue(testAccount(), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, denylist.Revoke(context.Background(), claims.ID, time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
