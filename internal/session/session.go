package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/lumenlab/authcore/internal/user/entity"
	"github.com/lumenlab/authcore/pkg/utilities"
)

var (
	// ErrNoSession reports that the request carries no active session.
	ErrNoSession = errors.New("no session")
	// ErrNotFound is returned by stores for unknown or expired tokens.
	ErrNotFound = errors.New("session not found")
)

// Session associates an opaque client-held token with an authenticated
// user for the duration of a login.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the server-side session persistence collaborator.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

type Config struct {
	CookieName string
	TTL        time.Duration
}

// ConfigFromEnv reads session config from env vars.
func ConfigFromEnv() Config {
	name := os.Getenv("SESSION_COOKIE")
	if name == "" {
		name = "authcore_session"
	}
	ttl := 12 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	return Config{CookieName: name, TTL: ttl}
}

// Manager moves sessions between Absent and Active: Create on login,
// Destroy on logout. The token travels in an HttpOnly cookie; the user
// record lives server-side in the Store.
type Manager struct {
	store Store
	cfg   Config
}

func NewManager(store Store, cfg Config) *Manager {
	return &Manager{store: store, cfg: cfg}
}

// Create starts a session for the authenticated user and sets the cookie.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, u *entity.PublicUser) (*Session, error) {
	s := &Session{
		Token:     utilities.NewKSUID(),
		UserID:    u.UserID,
		Username:  u.Username,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Save(ctx, s, m.cfg.TTL); err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Current resolves the request's session, or ErrNoSession when the cookie
// is missing or the token is unknown/expired.
func (m *Manager) Current(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	s, err := m.store.Get(ctx, c.Value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return s, nil
}

// Destroy ends the request's session and expires the cookie. Returns
// ErrNoSession when there was nothing to destroy; any other error means
// the store failed to release the session record.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return ErrNoSession
	}
	if err := m.store.Delete(ctx, c.Value); err != nil {
		if errors.Is(err, ErrNotFound) {
			// stale cookie, nothing server-side to release
			m.clearCookie(w)
			return ErrNoSession
		}
		return err
	}
	m.clearCookie(w)
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
