package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AddUser inserts a new account with an already-hashed password. It
// reports ErrAlreadyExists when the username is taken.
func (s *Store) AddUser(ctx context.Context, name, passwordHash, role string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, password_hash, role) VALUES (?, ?, ?)`,
		name, passwordHash, role)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, opErr("AddUser", ErrAlreadyExists, name)
		}
		return 0, opErr("AddUser", err, "")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, opErr("AddUser", err, "")
	}
	return id, nil
}

// GetUserByName fetches a full user row by name, used by login to verify
// the submitted password against the stored hash.
func (s *Store) GetUserByName(ctx context.Context, name string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, password_hash, role FROM users WHERE name = ?`, name).
		Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, opErr("GetUserByName", ErrNotFound, name)
	}
	if err != nil {
		return User{}, opErr("GetUserByName", err, "")
	}
	return u, nil
}

// GetRole returns the role of a known user id.
func (s *Store) GetRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", opErr("GetRole", ErrNotFound, fmt.Sprintf("user %d", userID))
	}
	if err != nil {
		return "", opErr("GetRole", err, "")
	}
	return role, nil
}

// GetUsernameByID resolves an id to a username, used to display a room's
// owner without the in-memory registry having to carry the name itself.
func (s *Store) GetUsernameByID(ctx context.Context, userID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", opErr("GetUsernameByID", ErrNotFound, fmt.Sprintf("user %d", userID))
	}
	if err != nil {
		return "", opErr("GetUsernameByID", err, "")
	}
	return name, nil
}

// isUniqueViolation detects SQLite's UNIQUE constraint failure message.
// modernc.org/sqlite does not expose a typed sqlite3.Error the way the cgo
// driver does, so this checks the error text the driver reports.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
