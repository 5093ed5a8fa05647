// Package auth handles registration, login, and role lookup. Passwords
// never touch the store in plaintext: this package hashes on register and
// verifies on login, the store only ever sees and returns a hash.
package auth

import (
	"context"
	"errors"
	"strings"

	"testserver/internal/security/password"
	"testserver/internal/store"
)

// ErrWrongAdminSecret is returned when an admin registration's code does
// not match the server's configured secret.
var ErrWrongAdminSecret = errors.New("auth: wrong admin secret")

// ErrInvalidCredentials is returned by Login on an unknown user or a
// password that doesn't verify against the stored hash.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Identity is everything a session retains about its caller for the life
// of a connection.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

// UserStore is the slice of Store this package depends on.
type UserStore interface {
	AddUser(ctx context.Context, name, passwordHash, role string) (int64, error)
	GetUserByName(ctx context.Context, name string) (store.User, error)
}

// Auth wires a UserStore and a password hasher behind the registration
// and login rules.
type Auth struct {
	store       UserStore
	hasher      password.Config
	adminSecret string
}

// New returns an Auth using hasher to hash and verify passwords and
// adminSecret as the fixed code required to self-register as admin.
func New(store UserStore, hasher password.Config, adminSecret string) *Auth {
	return &Auth{store: store, hasher: hasher, adminSecret: adminSecret}
}

// Register creates a new account. role must be store.RoleStudent or
// store.RoleAdmin; admin registration additionally requires code to match
// the configured admin secret.
func (a *Auth) Register(ctx context.Context, name, pass, role, code string) (int64, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = store.RoleStudent
	}
	if role != store.RoleStudent && role != store.RoleAdmin {
		return 0, errors.New("auth: unknown role")
	}
	if role == store.RoleAdmin && code != a.adminSecret {
		return 0, ErrWrongAdminSecret
	}

	hash, err := a.hasher.Hash(pass)
	if err != nil {
		return 0, err
	}
	return a.store.AddUser(ctx, name, hash, role)
}

// Login verifies credentials and returns the caller's Identity.
func (a *Auth) Login(ctx context.Context, name, pass string) (Identity, error) {
	u, err := a.store.GetUserByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}

	ok, err := a.hasher.Verify(u.PasswordHash, pass)
	if err != nil || !ok {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UserID: u.ID, Username: u.Name, Role: u.Role}, nil
}
