// Package auth implements password authentication over the user registry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"spendbook/internal/core"
)

// UserStore is the slice of the storage layer the authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role core.Role) error
	GetUser(ctx context.Context, username string) (hash string, role core.Role, err error)
	CountUsers(ctx context.Context) (int64, error)
}

// Authenticator registers and verifies user credentials with bcrypt.
type Authenticator struct {
	store UserStore
}

func New(store UserStore) *Authenticator {
	return &Authenticator{store: store}
}

// Register creates a new account. The role must exist and the password
// must meet the minimum length; the stored credential is a bcrypt hash.
func (a *Authenticator) Register(ctx context.Context, username, password string, role core.Role) error {
	if len(password) < 8 {
		return core.ErrWeakPassword
	}
	if !role.Valid() {
		return fmt.Errorf("role %q: %w", role, core.ErrUnknownRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := a.store.CreateUser(ctx, username, string(hash), role); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User registered", "username", username, "role", role)
	return nil
}

// Authenticate verifies the credentials and returns the session value the
// caller passes into every subsequent core operation.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (core.Session, error) {
	hash, role, err := a.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			return core.Session{}, core.ErrInvalidCredentials
		}
		return core.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return core.Session{}, core.ErrInvalidCredentials
	}
	return core.Session{Username: username, Role: role}, nil
}

// EnsureBootstrapAdmin creates the initial admin account on an empty user
// table so a fresh database is usable.
func (a *Authenticator) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	n, err := a.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := a.Register(ctx, username, password, core.RoleAdmin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	slog.InfoContext(ctx, "Bootstrap admin created", "username", username)
	return nil
}
