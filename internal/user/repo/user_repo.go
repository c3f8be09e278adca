package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lumenlab/authcore/internal/user/entity"
)

// ErrDuplicateUsername is returned by Create when the unique constraint on
// username rejects the insert. The pre-check in the service layer catches
// most duplicates; this covers the check-then-insert race.
var ErrDuplicateUsername = errors.New("duplicate username")

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  user_id BIGSERIAL PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  password TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row and returns the caller-safe projection with
// the store-assigned id. A unique violation maps to ErrDuplicateUsername.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (*entity.PublicUser, error) {
	const q = `INSERT INTO users (username, password) VALUES ($1, $2) RETURNING user_id, username`
	var u entity.PublicUser
	if err := r.db.GetContext(ctx, &u, q, username, passwordHash); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return &u, nil
}

// GetByUsername fetches a full row (including the password hash) by exact
// username equality, or sql.ErrNoRows.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	const q = `SELECT user_id, username, password FROM users WHERE username = $1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, username); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID returns the public projection for one user, or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.PublicUser, error) {
	const q = `SELECT user_id, username FROM users WHERE user_id = $1`
	var u entity.PublicUser
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns the public projection of every user, ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]entity.PublicUser, error) {
	const q = `SELECT user_id, username FROM users ORDER BY user_id`
	users := []entity.PublicUser{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}
