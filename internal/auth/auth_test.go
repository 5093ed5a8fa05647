package auth

import (
	"context"
	"errors"
	"testing"

	"testserver/internal/security/password"
	"testserver/internal/store"
)

type fakeUserStore struct {
	byName map[string]store.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byName: make(map[string]store.User)}
}

func (f *fakeUserStore) AddUser(_ context.Context, name, hash, role string) (int64, error) {
	if _, ok := f.byName[name]; ok {
		return 0, store.OpError{Op: "AddUser", Kind: store.ErrAlreadyExists}
	}
	f.nextID++
	f.byName[name] = store.User{ID: f.nextID, Name: name, PasswordHash: hash, Role: role}
	return f.nextID, nil
}

func (f *fakeUserStore) GetUserByName(_ context.Context, name string) (store.User, error) {
	u, ok := f.byName[name]
	if !ok {
		return store.User{}, store.OpError{Op: "GetUserByName", Kind: store.ErrNotFound}
	}
	return u, nil
}

func newTestAuth(s UserStore) *Auth {
	return New(s, password.DefaultConfig(), "admin-secret")
}

func TestRegister_StudentSucceedsWithoutCode(t *testing.T) {
	a := newTestAuth(newFakeUserStore())
	id, err := a.Register(context.Background(), "alice", "hunter22", store.RoleStudent, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero user id")
	}
}

func TestRegister_AdminRequiresCorrectSecret(t *testing.T) {
	a := newTestAuth(newFakeUserStore())
	_, err := a.Register(context.Background(), "bob", "hunter22", store.RoleAdmin, "wrong")
	if !errors.Is(err, ErrWrongAdminSecret) {
		t.Fatalf("want ErrWrongAdminSecret, got %v", err)
	}

	if _, err := a.Register(context.Background(), "bob", "hunter22", store.RoleAdmin, "admin-secret"); err != nil {
		t.Fatalf("Register with correct secret: %v", err)
	}
}

func TestLogin_RejectsUnknownUserAndWrongPassword(t *testing.T) {
	s := newFakeUserStore()
	a := newTestAuth(s)

	if _, err := a.Login(context.Background(), "ghost", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for unknown user, got %v", err)
	}

	if _, err := a.Register(context.Background(), "carol", "correct-horse", store.RoleStudent, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := a.Login(context.Background(), "carol", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for wrong password, got %v", err)
	}

	id, err := a.Login(context.Background(), "carol", "correct-horse")
	if err != nil {
		t.Fatalf("Login with correct password: %v", err)
	}
	if id.Username != "carol" || id.Role != store.RoleStudent {
		t.Fatalf("unexpected identity: %+v", id)
	}
}
