package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munigestion/munigestion/internal/authz"
	"github.com/munigestion/munigestion/internal/shared"
)

func loginFixture(t *testing.T) (*Handler, *TokenManager, *Denylist) {
	t.Helper()
	repo := &mockAccountRepo{accounts: map[string]*Account{
		"director@muni.gob": {
			ID:           1,
			Email:        "director@muni.gob",
			PasswordHash: hashPassword(t, "correcta"),
			Role:         authz.RoleDirector,
			IsActive:     true,
		},
	}}
	tokens, err := NewTokenManager(testSecret, time.Hour, "munigestion")
	require.NoError(t, err)
	denylist, _ := testDenylist(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, NewService(repo), tokens, denylist, nil), tokens, denylist
}

func postLogin(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginIssuesToken(t *testing.T) {
	h, tokens, _ := loginFixture(t)

	rec := postLogin(t, h, `{"email":"director@muni.gob","password":"correcta"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims, err := tokens.Parse(body.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, string(authz.RoleDirector), claims.Role)
}

func TestLoginRejectsBadRequests(t *testing.T) {
	h, _, _ := loginFixture(t)

	rec := postLogin(t, h, `{"email":"director@muni.gob","password":"incorrecta"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postLogin(t, h, `{"email":"no-es-un-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postLogin(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutDenylistsToken(t *testing.T) {
	h, _, denylist := loginFixture(t)

	identity := shared.Identity{
		UserID:      1,
		Role:        string(authz.RoleDirector),
		TokenID:     "jti-logout",
		TokenExpiry: time.Now().UTC().Add(time.Hour),
	}
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	revoked, err := denylist.IsRevoked(context.Background(), "jti-logout")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutWithoutIdentity(t *testing.T) {
	h, _, _ := loginFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
