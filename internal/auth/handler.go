package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/lumenlab/authcore/internal/session"
	userrepo "github.com/lumenlab/authcore/internal/user/repo"
)

// Handler exposes HTTP endpoints for authentication (register / login / logout).
type Handler struct {
	svc      *Service
	sessions *session.Manager
	logger   *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, sessions *session.Manager, logger *zap.SugaredLogger) *Handler {
	svc := NewService(userrepo.NewUserRepo(db), nil)
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// NewHandlerWithService wires an explicit service; used by tests.
func NewHandlerWithService(svc *Service, sessions *session.Manager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// CredentialsRequest is the body for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MessageResponse is the generic message body.
type MessageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "invalid payload"})
		return
	}
	u, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			h.writeJSON(w, http.StatusUnprocessableEntity, MessageResponse{Message: "Username taken"})
		case errors.Is(err, ErrPasswordTooShort):
			h.writeJSON(w, http.StatusUnprocessableEntity, MessageResponse{Message: "Password must be longer than 3 chars"})
		default:
			h.logger.Warnw("register failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "registration failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "invalid payload"})
		return
	}
	u, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			// one body for unknown user and wrong password alike
			h.writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Invalid credentials"})
			return
		}
		h.logger.Warnw("login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "login failed"})
		return
	}
	if _, err := h.sessions.Create(r.Context(), w, u); err != nil {
		h.logger.Warnw("session create failed", "err", err, "user_id", u.UserID)
		h.writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "login failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Welcome %s, have a cookie.", u.Username),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Destroy(r.Context(), w, r)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
	case errors.Is(err, session.ErrNoSession):
		// idempotent no-op, distinct body for observability
		h.writeJSON(w, http.StatusOK, MessageResponse{Message: "no session"})
	default:
		h.logger.Warnw("session destroy failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "logout failed"})
	}
}

// Users lists registered users (public projection only). Mounted behind
// RequireSession.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		h.logger.Warnw("list users failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "listing failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// RequireSession rejects requests without an active session.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.sessions.Current(r.Context(), r); err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				h.logger.Warnw("session lookup failed", "err", err)
				h.writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "session lookup failed"})
				return
			}
			h.writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "no session"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
