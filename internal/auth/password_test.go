package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
)

type fakeUserStore struct {
	users map[string]struct {
		hash string
		role core.Role
	}
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]struct {
		hash string
		role core.Role
	})}
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, passwordHash string, role core.Role) error {
	if _, ok := f.users[username]; ok {
		return core.ErrAlreadyExists
	}
	f.users[username] = struct {
		hash string
		role core.Role
	}{passwordHash, role}
	return nil
}

func (f *fakeUserStore) GetUser(_ context.Context, username string) (string, core.Role, error) {
	u, ok := f.users[username]
	if !ok {
		return "", "", core.ErrInvalidCredentials
	}
	return u.hash, u.role, nil
}

func (f *fakeUserStore) CountUsers(context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	a := New(newFakeUserStore())
	ctx := context.Background()

	require.NoError(t, a.Register(ctx, "alice", "s3cret-pass", core.RoleUser))

	sess, err := a.Authenticate(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, core.Session{Username: "alice", Role: core.RoleUser}, sess)

	_, err = a.Authenticate(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	a := New(newFakeUserStore())

	err := a.Register(context.Background(), "alice", "short", core.RoleUser)
	assert.ErrorIs(t, err, core.ErrWeakPassword)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	a := New(newFakeUserStore())

	err := a.Register(context.Background(), "alice", "s3cret-pass", core.Role("superuser"))
	assert.ErrorIs(t, err, core.ErrUnknownRole)
}

func TestRegisterNeverStoresPlaintext(t *testing.T) {
	store := newFakeUserStore()
	a := New(store)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx, "alice", "s3cret-pass", core.RoleUser))
	assert.NotEqual(t, "s3cret-pass", store.users["alice"].hash)
	assert.NotEmpty(t, store.users["alice"].hash)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	store := newFakeUserStore()
	a := New(store)
	ctx := context.Background()

	require.NoError(t, a.EnsureBootstrapAdmin(ctx, "admin", "changeme-now"))
	sess, err := a.Authenticate(ctx, "admin", "changeme-now")
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin())

	// A populated user table must not be touched.
	require.NoError(t, a.EnsureBootstrapAdmin(ctx, "admin2", "changeme-now"))
	_, err = a.Authenticate(ctx, "admin2", "changeme-now")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}
