package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := New("test-secret", time.Hour)

	token, err := m.GenerateToken("admin-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	adminID, err := m.AdminIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-123", adminID)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := New("test-secret", -time.Minute)

	token, err := m.GenerateToken("admin-123")
	require.NoError(t, err)

	_, err = m.AdminIDFromToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := New("secret-a", time.Hour).GenerateToken("admin-123")
	require.NoError(t, err)

	_, err = New("secret-b", time.Hour).AdminIDFromToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	m := New("test-secret", time.Hour)
	_, err := m.AdminIDFromToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdminIDFromRequest(t *testing.T) {
	m := New("test-secret", time.Hour)

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
		_, err := m.AdminIDFromRequest(r)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("valid cookie", func(t *testing.T) {
		token, err := m.GenerateToken("admin-123")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})

		adminID, err := m.AdminIDFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "admin-123", adminID)
	})
}

func TestSessionCookieLifecycle(t *testing.T) {
	m := New("test-secret", time.Hour)

	w := httptest.NewRecorder()
	m.SetSessionCookie(w, "some-token")
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, "some-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	w = httptest.NewRecorder()
	m.ClearSessionCookie(w)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("not a hash", "anything"))
}
