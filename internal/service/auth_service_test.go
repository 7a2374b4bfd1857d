package service

import (
	"context"
	"testing"
	"time"

	"locus/internal/dto"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authSecret = "auth-secret"

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	db := newMemStore()
	denylist := NewMemoryDenylist()
	svc := NewAuthService(db, denylist, logger.NewNop(), authSecret, time.Hour)

	registered, err := svc.Register(ctx, &dto.RegisterRequest{
		Username: " ada ", Password: "analytical", FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "User registered and logged in", registered.Message)
	assert.Equal(t, "ada", registered.User.Username)
	assert.Equal(t, "Lovelace", registered.User.LastName)
	assert.NotEmpty(t, registered.User.Token)
	require.Len(t, db.authors, 1)
	assert.Equal(t, db.authors[0].Id, registered.User.AuthorID)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "ada", Password: "other1", FirstName: "A", LastName: "B"})
		var appErr *serverutils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.Code)
	})

	t.Run("login", func(t *testing.T) {
		res, err := svc.Login(ctx, &dto.LoginRequest{Username: "ada", Password: "analytical"})
		require.NoError(t, err)
		assert.Equal(t, "Logged in successfully", res.Message)

		claims, err := serverutils.ParseToken(authSecret, res.User.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID.String(), claims.UserID)

		name, err := svc.UserName(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, "ada", name)
	})

	t.Run("bad credentials", func(t *testing.T) {
		for _, req := range []dto.LoginRequest{
			{Username: "ada", Password: "wrong"},
			{Username: "nobody", Password: "analytical"},
		} {
			_, err := svc.Login(ctx, &req)
			var appErr *serverutils.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 401, appErr.Code)
			assert.Equal(t, "Invalid email or password", appErr.Message)
		}
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		claims, err := serverutils.ParseToken(authSecret, registered.User.Token)
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, claims))
		_, err = serverutils.Authenticate(ctx, authSecret, denylist, registered.User.Token)
		var appErr *serverutils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Token revoked", appErr.Message)
	})
}

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	require.NoError(t, d.Revoke(ctx, "live", time.Now().Add(time.Minute)))
	require.NoError(t, d.Revoke(ctx, "expired", time.Now().Add(-time.Minute)))

	revoked, err := d.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
