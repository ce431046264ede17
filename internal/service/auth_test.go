package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usersvc/backend/internal/db"
	"github.com/usersvc/backend/internal/security"
	"github.com/usersvc/backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	accessSecret  = []byte("access-secret-access-secret-0123")
	refreshSecret = []byte("refresh-secret-refresh-secret-01")
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

type authFixture struct {
	auth   *AuthService
	users  *UserService
	codec  *security.TokenCodec
	tokens *store.MemoryRefreshStore
	clock  *clock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	c := &clock{t: fixedNow}
	codec, err := security.NewTokenCodec(accessSecret, refreshSecret,
		security.WithClock(c.now), security.WithLogger(discardLogger()))
	require.NoError(t, err)

	users := newTestUserService(db.NewMemory())
	tokens := store.NewMemoryRefreshStore()
	auth, err := NewAuthService(users, security.NewBcryptHasher(bcrypt.MinCost), codec, tokens,
		AuthConfig{AccessTTL: 15 * time.Minute, RefreshTTL: 30 * 24 * time.Hour}, discardLogger())
	require.NoError(t, err)

	_, err = users.Create(context.Background(), userRequest("a@x.com"))
	require.NoError(t, err)

	return &authFixture{auth: auth, users: users, codec: codec, tokens: tokens, clock: c}
}

func TestLoginThenRenew(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	assert.True(t, f.codec.Validate(pair.AccessToken, security.AccessToken))
	assert.True(t, f.codec.Validate(pair.RefreshToken, security.RefreshToken))

	stored, ok, err := f.tokens.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pair.RefreshToken, stored)

	access, err := f.auth.RenewAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := f.codec.Claims(access, security.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject)

	// renewal leaves the refresh token in place
	_, err = f.auth.RenewAccessToken(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "unknown email", email: "nobody@x.com", password: "secret123", want: ErrUnauthorized},
		{name: "wrong password", email: "a@x.com", password: "wrong1234", want: ErrUnauthorized},
		{name: "empty email", email: "", password: "secret123", want: ErrInvalidInput},
		{name: "empty password", email: "a@x.com", password: "", want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tt.email, tt.password)
			require.ErrorIs(t, err, tt.want)
			if tt.want == ErrUnauthorized {
				assert.Equal(t, []string{"invalid credentials"}, Messages(err))
			}
		})
	}

	_, ok, err := f.tokens.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRotationSupersedesOldToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	rotated, err := f.auth.RotateRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated)

	_, err = f.auth.RenewAccessToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, []string{"mismatched or expired refresh token"}, Messages(err))

	_, err = f.auth.RotateRefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.auth.RenewAccessToken(ctx, rotated)
	assert.NoError(t, err)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	first, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	_, err = f.auth.RenewAccessToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.auth.RenewAccessToken(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRenewRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
		msg   string
	}{
		{name: "empty", token: "", want: ErrInvalidInput},
		{name: "garbage", token: "not.a.jwt", want: ErrUnauthorized, msg: "invalid refresh token"},
		{name: "access token as refresh", token: pair.AccessToken, want: ErrUnauthorized, msg: "invalid refresh token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.RenewAccessToken(ctx, tt.token)
			require.ErrorIs(t, err, tt.want)
			if tt.msg != "" {
				assert.Equal(t, []string{tt.msg}, Messages(err))
			}
		})
	}
}

func TestRenewRejectsExpiredRefreshToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(31 * 24 * time.Hour)
	_, err = f.auth.RenewAccessToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRenewRejectsUnknownSubject(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	forged, err := f.codec.Sign("ghost@x.com", security.RefreshToken, time.Hour)
	require.NoError(t, err)
	_, err = f.auth.RenewAccessToken(ctx, forged)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, []string{"mismatched or expired refresh token"}, Messages(err))

	require.NoError(t, f.tokens.Put(ctx, "ghost@x.com", forged))
	_, err = f.auth.RenewAccessToken(ctx, forged)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, []string{"invalid refresh token"}, Messages(err))
}

func TestDeletedUserCannotRenew(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, f.users.DeleteByID(ctx, 1))

	_, err = f.auth.RotateRefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateAccessTokenAndPrincipal(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	pair, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	assert.True(t, f.auth.ValidateAccessToken(pair.AccessToken))
	assert.False(t, f.auth.ValidateAccessToken(pair.RefreshToken))
	assert.False(t, f.auth.ValidateAccessToken(""))

	principal, err := f.auth.Principal(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", principal.Email)
	assert.True(t, principal.Authenticated)

	f.clock.t = f.clock.t.Add(16 * time.Minute)
	assert.False(t, f.auth.ValidateAccessToken(pair.AccessToken))
	_, err = f.auth.Principal(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, string, string) error { return errors.New("redis down") }

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func TestStoreFailureIsNotAnAuthError(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	auth, err := NewAuthService(f.users, security.NewBcryptHasher(bcrypt.MinCost), f.codec, brokenStore{},
		AuthConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}, discardLogger())
	require.NoError(t, err)

	_, err = auth.Login(ctx, "a@x.com", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Nil(t, Messages(err))
}

func TestNewAuthServiceRejectsBadTTL(t *testing.T) {
	_, err := NewAuthService(nil, nil, nil, nil, AuthConfig{AccessTTL: 0, RefreshTTL: time.Hour}, nil)
	assert.ErrorIs(t, err, security.ErrMisconfigured)
}
