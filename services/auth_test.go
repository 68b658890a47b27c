package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"idealtransport/cache"
	"idealtransport/models"
	"idealtransport/repository/memory"
)

func newAuth(t *testing.T) (*AuthService, *miniredis.Miniredis, *memory.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	tokens := cache.NewRedis(client, "idealtransport:")
	return NewAuthService(store, tokens, time.Hour, discardLogger()), mr, store
}

func register(t *testing.T, svc *AuthService, email string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &models.RegisterInput{
		Email:    email,
		Password: "correct horse",
		FullName: "Pat Office",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	u := register(t, svc, " Pat@Example.com ")
	require.Equal(t, "pat@example.com", u.Email)
	require.True(t, u.IsActive)
	require.False(t, u.IsAdmin)
	require.NotEqual(t, "correct horse", u.HashedPassword)

	_, err := svc.Register(ctx, &models.RegisterInput{Email: "PAT@example.com", Password: "another one"})
	requireKind(t, err, KindConflict, "email_registered")

	_, err = svc.Register(ctx, &models.RegisterInput{Email: "short@example.com", Password: "short"})
	requireKind(t, err, KindValidation, "invalid_input")

	tok, err := svc.Login(ctx, "pat@EXAMPLE.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, TokenType, tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)

	p, err := svc.Resolve(ctx, tok.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, p.ID)

	me, err := svc.Me(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "Pat Office", me.FullName)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, store := newAuth(t)
	ctx := context.Background()
	u := register(t, svc, "pat@example.com")

	_, err := svc.Login(ctx, "pat@example.com", "wrong password")
	requireKind(t, err, KindUnauthorized, "invalid_credentials")

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	requireKind(t, err, KindUnauthorized, "invalid_credentials")

	u.IsActive = false
	require.NoError(t, store.UpdateUser(ctx, u))
	_, err = svc.Login(ctx, "pat@example.com", "correct horse")
	requireKind(t, err, KindUnauthorized, "invalid_credentials")
}

func TestTokenExpiryAndLogout(t *testing.T) {
	svc, mr, store := newAuth(t)
	ctx := context.Background()
	u := register(t, svc, "pat@example.com")

	tok, err := svc.Login(ctx, "pat@example.com", "correct horse")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	_, err = svc.Resolve(ctx, tok.AccessToken)
	requireKind(t, err, KindUnauthorized, "invalid_token")

	tok, err = svc.Login(ctx, "pat@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, tok.AccessToken))
	_, err = svc.Resolve(ctx, tok.AccessToken)
	requireKind(t, err, KindUnauthorized, "invalid_token")

	// Deactivation revokes outstanding tokens on their next use.
	tok, err = svc.Login(ctx, "pat@example.com", "correct horse")
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, store.UpdateUser(ctx, u))
	_, err = svc.Resolve(ctx, tok.AccessToken)
	requireKind(t, err, KindUnauthorized, "invalid_token")

	_, err = svc.Resolve(ctx, "")
	requireKind(t, err, KindUnauthorized, "invalid_token")
}
