package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munigestion/munigestion/internal/authz"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testAccount() *Account {
	return &Account{ID: 42, Email: "coordinador@muni.gob", Role: authz.RoleCoordinator, IsActive: true}
}

func TestNewTokenManagerRejectsWeakConfig(t *testing.T) {
	_, err := NewTokenManager("short", time.Hour, "munigestion")
	assert.Error(t, err)

	_, err = NewTokenManager(testSecret, 0, "munigestion")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour, "munigestion")
	require.NoError(t, err)

	now := time.Now().UTC()
	raw, issued, err := m.Issue(testAccount(), now)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID, "jti required for denylisting")

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, string(authz.RoleCoordinator), claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "munigestion", claims.Issuer)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour, "munigestion")
	require.NoError(t, err)

	raw, _, err := m.Issue(testAccount(), time.Now().UTC())
	require.NoError(t, err)

	_, err = m.Parse(raw + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Minute, "munigestion")
	require.NoError(t, err)

	raw, _, err := m.Issue(testAccount(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	other, err := NewTokenManager(testSecret, time.Hour, "someone-else")
	require.NoError(t, err)
	m, err := NewTokenManager(testSecret, time.Hour, "munigestion")
	require.NoError(t, err)

	raw, _, err := other.Issue(testAccount(), time.Now().UTC())
	require.NoError(t, err)

	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
