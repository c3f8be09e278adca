package entity

// User represents a row in the `users` table. Password always holds the
// bcrypt digest, never the plaintext, and is excluded from JSON so a full
// row can never leak the hash through a response body.
type User struct {
	UserID   int64  `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
}

// PublicUser is the only projection returned to external callers.
type PublicUser struct {
	UserID   int64  `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
}

// Public returns the caller-safe projection of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{UserID: u.UserID, Username: u.Username}
}
