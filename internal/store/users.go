package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// UserByUsername looks up a user for login.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	return queryOne[User](ctx, s.pool,
		"SELECT * FROM users WHERE username = @username",
		pgx.NamedArgs{"username": username})
}

// UserIDByToken resolves a bearer token to its user id.
func (s *Store) UserIDByToken(ctx context.Context, token string) (int, error) {
	return read(ctx, s, "user_by_token", func(ctx context.Context) (int, error) {
		var userID int
		err := s.pool.QueryRow(ctx, "SELECT id FROM users WHERE auth_token = $1", token).Scan(&userID)
		return userID, err
	})
}
