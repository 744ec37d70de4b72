// Package auth issues and verifies admin session tokens and hashes admin
// passwords.
//
// A session is a signed, time-limited JWT carried in an HTTP-only cookie.
// There is no server-side session storage: the signature and the embedded
// expiry are the whole credential, so logout is simply clearing the cookie.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the cookie the browser carries between admin requests.
const SessionCookie = "admin_session"

// bcryptCost is deliberately above the library default; hashing is meant
// to be slow.
const bcryptCost = 12

var (
	// ErrNoSession means the request carried no session cookie at all.
	ErrNoSession = errors.New("no session cookie")
	// ErrInvalidToken covers a bad signature, malformed token, or expiry.
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// Claims are the JWT claims of a session token. Subject holds the admin id.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens with a single HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// New returns a Manager signing tokens with secret, valid for ttl.
func New(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// GenerateToken mints a signed session token for the given admin id.
func (m *Manager) GenerateToken(adminID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.secret)
}

// AdminIDFromToken verifies the token's signature and expiry and returns
// the admin id it was issued for. Any failure is ErrInvalidToken — callers
// treat every bad token the same way.
func (m *Manager) AdminIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// AdminIDFromRequest extracts the session cookie from a request and
// resolves it to an admin id.
func (m *Manager) AdminIDFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", ErrNoSession
	}
	return m.AdminIDFromToken(cookie.Value)
}

// SetSessionCookie attaches a freshly issued token to the response.
// HttpOnly keeps it away from page scripts; SameSite=Lax lets normal
// navigation carry it while blocking cross-site POSTs.
func (m *Manager) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func (m *Manager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// adminIDKey is the context key under which the session middleware stores
// the authenticated admin's id. Unexported struct type — no other package
// can collide with it.
type adminIDKey struct{}

// ContextWithAdminID returns a child context carrying the admin id.
func ContextWithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminIDKey{}, adminID)
}

// AdminIDFromContext retrieves the admin id stored by the session
// middleware. ok is false on requests that never passed the gate.
func AdminIDFromContext(ctx context.Context) (string, bool) {
	adminID, ok := ctx.Value(adminIDKey{}).(string)
	return adminID, ok
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hash), err
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
