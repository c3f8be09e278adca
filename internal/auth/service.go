package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lumenlab/authcore/internal/user/entity"
	userrepo "github.com/lumenlab/authcore/internal/user/repo"
)

// minPasswordLen is exclusive: a password must be strictly longer than this.
const minPasswordLen = 3

var (
	ErrUsernameTaken    = errors.New("username taken")
	ErrPasswordTooShort = errors.New("password too short")
	ErrBadCredentials   = errors.New("invalid credentials")
)

// UserStore is the persistence collaborator over the users relation.
// *userrepo.UserRepo satisfies it; tests use in-memory fakes.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*entity.PublicUser, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	List(ctx context.Context) ([]entity.PublicUser, error)
}

// Service orchestrates credential validation, hashing and the user store.
type Service struct {
	store  UserStore
	hasher PasswordHasher
}

func NewService(store UserStore, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = HasherFromEnv()
	}
	return &Service{store: store, hasher: hasher}
}

// Register validates the credentials, hashes the password and inserts the
// user. The username-free pre-check is an optimization for a friendly
// error; the store's unique constraint is authoritative, and a duplicate
// violation from the insert reports the same ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, username, password string) (*entity.PublicUser, error) {
	username = strings.TrimSpace(username)
	if len(password) <= minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Create(ctx, username, hash)
	if err != nil {
		if errors.Is(err, userrepo.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

// Authenticate verifies a login attempt. An unknown username and a wrong
// password both return ErrBadCredentials so responses stay
// indistinguishable and usernames cannot be enumerated.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.PublicUser, error) {
	u, err := s.store.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.Password, password) {
		return nil, ErrBadCredentials
	}
	return u.Public(), nil
}

// Users returns the public projection of all registered users.
func (s *Service) Users(ctx context.Context) ([]entity.PublicUser, error) {
	return s.store.List(ctx)
}
