package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlement-hub/settlement-hub/internal/application/account"
	appAudit "github.com/settlement-hub/settlement-hub/internal/application/audit"
	"github.com/settlement-hub/settlement-hub/internal/domain/user"
	"github.com/settlement-hub/settlement-hub/internal/infrastructure/memory"
)

func newAuthEnv(t *testing.T) (*Service, *account.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	auditSvc := appAudit.NewService(store.Audits(), zerolog.Nop(), nil)
	accountSvc := account.NewService(store.Users(), auditSvc, zerolog.Nop())
	authSvc := NewService(store.Users(), store.Tokens(), time.Hour, auditSvc, zerolog.Nop())
	return authSvc, accountSvc, store
}

func register(t *testing.T, accountSvc *account.Service, username, password string) *user.User {
	t.Helper()
	u, err := accountSvc.Register(context.Background(), account.RegisterInput{
		Username: username,
		Password: password,
	}, username)
	require.NoError(t, err)
	return u
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	authSvc, accountSvc, _ := newAuthEnv(t)
	register(t, accountSvc, "alice", "S3cret-Pass!99")

	res, err := authSvc.Login(ctx, "alice", "S3cret-Pass!99", nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice", res.User.Username)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	u, tok, err := authSvc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice", tok.Account)

	// Username lookup is case-insensitive.
	res2, err := authSvc.Login(ctx, "  ALICE ", "S3cret-Pass!99", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, res.Token, res2.Token)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	authSvc, accountSvc, store := newAuthEnv(t)
	u := register(t, accountSvc, "alice", "S3cret-Pass!99")

	_, err := authSvc.Login(ctx, "alice", "wrong", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authSvc.Login(ctx, "nobody", "S3cret-Pass!99", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u.Status = user.StatusDisabled
	require.NoError(t, store.Users().Update(ctx, u))
	_, err = authSvc.Login(ctx, "alice", "S3cret-Pass!99", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsRevokedAndUnknownTokens(t *testing.T) {
	ctx := context.Background()
	authSvc, accountSvc, _ := newAuthEnv(t)
	register(t, accountSvc, "alice", "S3cret-Pass!99")

	_, _, err := authSvc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = authSvc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	res, err := authSvc.Login(ctx, "alice", "S3cret-Pass!99", nil, nil)
	require.NoError(t, err)
	require.NoError(t, authSvc.Logout(ctx, res.Token))

	_, _, err = authSvc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Logging out twice is a no-op.
	assert.NoError(t, authSvc.Logout(ctx, res.Token))
}

func TestAuthenticateDisabledUser(t *testing.T) {
	ctx := context.Background()
	authSvc, accountSvc, store := newAuthEnv(t)
	u := register(t, accountSvc, "alice", "S3cret-Pass!99")

	res, err := authSvc.Login(ctx, "alice", "S3cret-Pass!99", nil, nil)
	require.NoError(t, err)

	u.Status = user.StatusDisabled
	require.NoError(t, store.Users().Update(ctx, u))

	// A live token stops working the moment the account is disabled.
	_, _, err = authSvc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
