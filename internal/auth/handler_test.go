package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumenlab/authcore/internal/session"
)

func newTestMux(t *testing.T) (*http.ServeMux, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc := NewService(store, BcryptHasher{Cost: bcrypt.MinCost})
	sessions := session.NewManager(session.NewMemoryStore(), session.Config{
		CookieName: "authcore_session",
		TTL:        time.Hour,
	})
	h := NewHandlerWithService(svc, sessions, zap.NewNop().Sugar())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.Handle("GET /users", h.RequireSession(http.HandlerFunc(h.Users)))
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Message
}

func TestRegister(t *testing.T) {
	mux, store := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"1234"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["user_id"])
	assert.Equal(t, "sue", body["username"])
	// the hash never rides along in the response
	assert.NotContains(t, body, "password")
	assert.NotContains(t, w.Body.String(), store.users["sue"].Password)
}

func TestRegisterUsernameTaken(t *testing.T) {
	mux, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"1234"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"abcd"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Username taken", message(t, w))
}

func TestRegisterShortPassword(t *testing.T) {
	mux, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"123"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Password must be longer than 3 chars", message(t, w))
}

func TestRegisterInvalidPayload(t *testing.T) {
	mux, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodPost, "/register", `{"username":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginIndistinguishableFailures(t *testing.T) {
	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"1234"}`, nil)

	unknown := doJSON(t, mux, http.MethodPost, "/login", `{"username":"bob","password":"1234"}`, nil)
	wrongPw := doJSON(t, mux, http.MethodPost, "/login", `{"username":"sue","password":"4321"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	// identical bodies so usernames cannot be enumerated
	assert.Equal(t, unknown.Body.String(), wrongPw.Body.String())
	assert.Equal(t, "Invalid credentials", message(t, unknown))
	assert.Empty(t, unknown.Result().Cookies())
}

func TestLoginLogoutFlow(t *testing.T) {
	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"1234"}`, nil)

	w := doJSON(t, mux, http.MethodPost, "/login", `{"username":"sue","password":"1234"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome sue, have a cookie.", message(t, w))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "authcore_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	w = doJSON(t, mux, http.MethodGet, "/logout", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "logged out", message(t, w))

	// the token is dead server-side: replaying the old cookie is a no-op
	w = doJSON(t, mux, http.MethodGet, "/logout", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no session", message(t, w))
}

type failingSessionStore struct {
	session.Store
}

func (failingSessionStore) Delete(context.Context, string) error {
	return errors.New("store unavailable")
}

func TestLogoutDestroyFailure(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, BcryptHasher{Cost: bcrypt.MinCost})
	sessions := session.NewManager(failingSessionStore{session.NewMemoryStore()}, session.Config{
		CookieName: "authcore_session",
		TTL:        time.Hour,
	})
	h := NewHandlerWithService(svc, sessions, zap.NewNop().Sugar())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)

	doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"1234"}`, nil)
	login := doJSON(t, mux, http.MethodPost, "/login", `{"username":"sue","password":"1234"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	w := doJSON(t, mux, http.MethodGet, "/logout", "", login.Result().Cookies())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "logout failed", message(t, w))
}

func TestLogoutWithoutSession(t *testing.T) {
	mux, _ := newTestMux(t)

	w := doJSON(t, mux, http.MethodGet, "/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no session", message(t, w))
}

func TestUsersRequiresSession(t *testing.T) {
	mux, _ := newTestMux(t)
	doJSON(t, mux, http.MethodPost, "/register", `{"username":"sue","password":"1234"}`, nil)

	w := doJSON(t, mux, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no session", message(t, w))

	login := doJSON(t, mux, http.MethodPost, "/login", `{"username":"sue","password":"1234"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	w = doJSON(t, mux, http.MethodGet, "/users", "", login.Result().Cookies())
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "sue", users[0]["username"])
	assert.NotContains(t, users[0], "password")
}
