package user_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/identity-provider/internal/serviceerr"
	"github.com/openkcm/identity-provider/internal/user"
	usermock "github.com/openkcm/identity-provider/internal/user/mock"
)

func TestService_Register(t *testing.T) {
	t.Run("creates user with hashed password", func(t *testing.T) {
		repo := usermock.NewInMemRepository()
		svc := user.NewService(repo)

		u, err := svc.Register(t.Context(), "alice@example.com", "hunter2", "Alice", "https://img.example/a.png")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.NotEqual(t, "hunter2", u.PasswordHash)
		assert.True(t, user.VerifyPassword("hunter2", u.PasswordHash))

		stored, err := repo.FindByEmail(t.Context(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, stored.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := usermock.NewInMemRepository()
		svc := user.NewService(repo)

		_, err := svc.Register(t.Context(), "alice@example.com", "pw", "", "")
		require.NoError(t, err)
		_, err = svc.Register(t.Context(), "alice@example.com", "pw2", "", "")
		assert.ErrorIs(t, err, serviceerr.ErrConflict)
	})
}

func TestService_Authenticate(t *testing.T) {
	hash, err := user.HashPassword("hunter2")
	require.NoError(t, err)

	repo := usermock.NewInMemRepository(usermock.WithUser(user.User{
		ID:           "u1",
		Email:        "alice@example.com",
		PasswordHash: hash,
	}))
	svc := user.NewService(repo)

	t.Run("valid credentials", func(t *testing.T) {
		u, err := svc.Authenticate(t.Context(), "alice@example.com", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(t.Context(), "alice@example.com", "nope")
		assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(t.Context(), "bob@example.com", "hunter2")
		assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	})

	t.Run("repository failure is not distinguishable", func(t *testing.T) {
		failing := user.NewService(usermock.NewInMemRepository(
			usermock.WithFindError(errors.New("db down"))))
		_, err := failing.Authenticate(t.Context(), "alice@example.com", "hunter2")
		assert.ErrorIs(t, err, serviceerr.ErrUnauthorized)
	})
}
