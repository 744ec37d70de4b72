package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/exam-results-api/internal/auth"
	"github.com/aanand-mishra/exam-results-api/internal/config"
	"github.com/aanand-mishra/exam-results-api/internal/storage/sqlite"
	"github.com/aanand-mishra/exam-results-api/internal/types"
)

// testEnv boots the real router over a throwaway SQLite file, so these
// tests exercise the same path a browser does: routing, middleware,
// handlers, storage.
type testEnv struct {
	router *chi.Mux
	store  *sqlite.SQLite
}

func setupEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Env:         "dev",
		StoragePath: filepath.Join(t.TempDir(), "test.db"),
		JWTSecret:   "test-secret",
		SessionTTL:  time.Hour,
	}
	for _, m := range mutate {
		m(cfg)
	}

	store, err := sqlite.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Db.Close() })

	sessions := auth.New(cfg.JWTSecret, cfg.SessionTTL)
	return &testEnv{router: New(cfg, store, sessions), store: store}
}

// do performs one request against the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	return body
}

// registerAndLogin creates the first admin and returns its session cookie.
func (e *testEnv) registerAndLogin(t *testing.T) *http.Cookie {
	t.Helper()

	creds := map[string]string{"email": "admin@example.com", "password": "super-secret-1"}
	rr := e.do(t, http.MethodPost, "/api/admin/register", creds)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/api/admin/login", creds)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

// studentPayload builds a valid create/replace body with every subject at
// the given score.
func studentPayload(rollNumber string, score int) map[string]any {
	scores := make(map[string]int, types.SubjectCount)
	for _, subject := range types.Subjects {
		scores[string(subject)] = score
	}
	return map[string]any{
		"name":        "Ayaan Mohamed",
		"mothersName": "Fadumo Ali",
		"rollNumber":  rollNumber,
		"school":      "Hargeisa Secondary",
		"placeOfExam": "Hargeisa",
		"scores":      scores,
	}
}

func studentCount(t *testing.T, env *testEnv) int {
	t.Helper()
	var count int
	require.NoError(t, env.store.Db.QueryRow("SELECT COUNT(*) FROM students").Scan(&count))
	return count
}

func TestAdminEndpointsRequireSession(t *testing.T) {
	env := setupEnv(t)

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/admin/me", nil},
		{http.MethodGet, "/api/admin/stats", nil},
		{http.MethodGet, "/api/admin/students", nil},
		{http.MethodPost, "/api/admin/students", studentPayload("R-1001", 70)},
		{http.MethodGet, "/api/admin/students/some-id", nil},
		{http.MethodPut, "/api/admin/students/some-id", studentPayload("R-1001", 70)},
		{http.MethodDelete, "/api/admin/students/some-id", nil},
	}

	for _, req := range requests {
		rr := env.do(t, req.method, req.path, req.body)
		assert.Equal(t, http.StatusUnauthorized, rr.Code,
			"%s %s", req.method, req.path)
	}

	// The rejected create performed no mutation.
	assert.Zero(t, studentCount(t, env))
}

func TestSessionGateRejectsBadTokens(t *testing.T) {
	env := setupEnv(t)

	// Garbage token.
	rr := env.do(t, http.MethodGet, "/api/admin/me", nil,
		&http.Cookie{Name: auth.SessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Expired token.
	expired, err := auth.New("test-secret", -time.Minute).GenerateToken("admin-1")
	require.NoError(t, err)
	rr = env.do(t, http.MethodGet, "/api/admin/me", nil,
		&http.Cookie{Name: auth.SessionCookie, Value: expired})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegistrationFlow(t *testing.T) {
	env := setupEnv(t)

	// Probe before any admin exists.
	rr := env.do(t, http.MethodGet, "/api/admin/register", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["exists"])

	// Weak payloads are rejected up front.
	rr = env.do(t, http.MethodPost, "/api/admin/register",
		map[string]string{"email": "not-an-email", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// First registration succeeds.
	rr = env.do(t, http.MethodPost, "/api/admin/register",
		map[string]string{"email": "admin@example.com", "password": "super-secret-1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body = decodeBody(t, rr)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["adminId"])

	// Probe now reports the registered email.
	rr = env.do(t, http.MethodGet, "/api/admin/register", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decodeBody(t, rr)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "admin@example.com", body["email"])

	// A second registration is refused.
	rr = env.do(t, http.MethodPost, "/api/admin/register",
		map[string]string{"email": "other@example.com", "password": "super-secret-2"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLoginLogoutAndMe(t *testing.T) {
	env := setupEnv(t)
	cookie := env.registerAndLogin(t)

	t.Run("wrong password", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/admin/login",
			map[string]string{"email": "admin@example.com", "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email looks identical", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/admin/login",
			map[string]string{"email": "nobody@example.com", "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("me with session", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/admin/me", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		admin, ok := body["admin"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "admin@example.com", admin["email"])
		assert.NotEmpty(t, admin["id"])
		// The password hash never appears in a response.
		assert.NotContains(t, rr.Body.String(), "passwordHash")
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/admin/logout", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		cookies := rr.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Empty(t, cookies[0].Value)
		assert.Negative(t, cookies[0].MaxAge)
	})
}

func TestStudentCRUDOverHTTP(t *testing.T) {
	env := setupEnv(t)
	cookie := env.registerAndLogin(t)

	// Create.
	rr := env.do(t, http.MethodPost, "/api/admin/students", studentPayload("R-1001", 45), cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	created, ok := body["student"].(map[string]any)
	require.True(t, ok)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, float64(540), created["total"])
	assert.Equal(t, float64(45), created["percentage"])
	assert.Equal(t, "D+", created["grade"])
	assert.Equal(t, types.StatusPassed, created["status"])

	// Duplicate roll number.
	rr = env.do(t, http.MethodPost, "/api/admin/students", studentPayload("R-1001", 70), cookie)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Validation failures.
	incomplete := studentPayload("R-2002", 70)
	delete(incomplete, "school")
	rr = env.do(t, http.MethodPost, "/api/admin/students", incomplete, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "School")

	badScores := studentPayload("R-2002", 70)
	badScores["scores"].(map[string]int)[string(types.SubjectMath)] = 150
	rr = env.do(t, http.MethodPost, "/api/admin/students", badScores, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "MATH")

	// Get by id.
	rr = env.do(t, http.MethodGet, "/api/admin/students/"+id, nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	// List.
	rr = env.do(t, http.MethodGet, "/api/admin/students?status=PASSED&q=R-1001", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decodeBody(t, rr)
	assert.Equal(t, float64(1), body["total"])

	// Replace-all update: one mark fewer flips the result to FAILED.
	rr = env.do(t, http.MethodPut, "/api/admin/students/"+id, studentPayload("R-1001", 44), cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body = decodeBody(t, rr)
	updated := body["student"].(map[string]any)
	assert.Equal(t, float64(528), updated["total"])
	assert.Equal(t, float64(44), updated["percentage"])
	assert.Equal(t, "D", updated["grade"])
	assert.Equal(t, types.StatusFailed, updated["status"])

	// Delete, then the id is gone.
	rr = env.do(t, http.MethodDelete, "/api/admin/students/"+id, nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/admin/students/"+id, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/admin/students/"+id, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPublicResultLookup(t *testing.T) {
	env := setupEnv(t)
	cookie := env.registerAndLogin(t)

	rr := env.do(t, http.MethodPost, "/api/admin/students", studentPayload("R 1001", 80), cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// No session cookie needed, and percent-encoded roll numbers resolve.
	rr = env.do(t, http.MethodGet, "/api/results/R%201001", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	found := body["student"].(map[string]any)
	assert.Equal(t, "R 1001", found["rollNumber"])
	assert.Equal(t, "A-", found["grade"])
	scores, ok := found["scores"].([]any)
	require.True(t, ok)
	assert.Len(t, scores, types.SubjectCount)

	rr = env.do(t, http.MethodGet, "/api/results/UNKNOWN", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Not found")
}

func TestStatsEndpoint(t *testing.T) {
	env := setupEnv(t)
	cookie := env.registerAndLogin(t)

	env.do(t, http.MethodPost, "/api/admin/students", studentPayload("R-1001", 30), cookie)
	env.do(t, http.MethodPost, "/api/admin/students", studentPayload("R-2002", 60), cookie)
	env.do(t, http.MethodPost, "/api/admin/students", studentPayload("R-3003", 90), cookie)

	rr := env.do(t, http.MethodGet, "/api/admin/stats", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, float64(3), body["all"])
	assert.Equal(t, float64(2), body["passed"])
	assert.Equal(t, float64(1), body["failed"])
}

func TestAdminPageGuard(t *testing.T) {
	webDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "index.html"),
		[]byte("<html></html>"), 0o644))

	env := setupEnv(t, func(cfg *config.Config) { cfg.WebDir = webDir })

	t.Run("public pages pass through", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/admin/login", nil)
		assert.NotEqual(t, http.StatusFound, rr.Code)
	})

	t.Run("unauthenticated admin page redirects to login", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/admin/dashboard", nil)
		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/admin/login?next=/admin/dashboard",
			rr.Header().Get("Location"))
	})

	t.Run("session passes the guard", func(t *testing.T) {
		cookie := env.registerAndLogin(t)
		rr := env.do(t, http.MethodGet, "/admin/dashboard", nil, cookie)
		assert.NotEqual(t, http.StatusFound, rr.Code)
	})

	t.Run("non-admin pages are never redirected", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
