// Package auth implements C8: password verification, token issue/refresh,
// and token-to-identity resolution (spec §4.8).
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// User is the spec §3 User entity. PasswordHash is never returned over any
// interface.
type User struct {
	Username     string
	PasswordHash string
	Roles        []string
	IsActive     bool
}

// Store is the Postgres-backed user store (spec §6.3: "relational table
// users(username PK, password_hash, roles, is_active)"), grounded on the
// teacher's PostgresStore wrapper shape (database/db.go).
type Store struct {
	db *sql.DB
}

// NewStore wraps an existing *sql.DB (opened via pgx's stdlib driver).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the users table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			roles TEXT[] NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)
	`)
	if err != nil {
		return fmt.Errorf("auth: ensure schema: %w", err)
	}
	return nil
}

// ErrUserNotFound is returned by GetByUsername when no row matches.
var ErrUserNotFound = errors.New("auth: user not found")

// GetByUsername looks up a user by exact, case-sensitive username match
// (SPEC_FULL §D.4: username case-sensitivity is decided once, here, at the
// store query — no LOWER() normalization).
func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	var roles pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, roles, is_active FROM users WHERE username = $1
	`, username).Scan(&u.Username, &u.PasswordHash, &roles, &u.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: get user %q: %w", username, err)
	}
	u.Roles = roles
	return &u, nil
}

// CreateUser provisions a user (administrative; out of scope per spec §1,
// but needed by tests and the index-builder's seed path).
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, roles, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			roles = EXCLUDED.roles,
			is_active = EXCLUDED.is_active
	`, u.Username, u.PasswordHash, pq.Array(u.Roles), u.IsActive)
	if err != nil {
		return fmt.Errorf("auth: create user %q: %w", u.Username, err)
	}
	return nil
}
