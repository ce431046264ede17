package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/usersvc/backend/internal/model"
	"github.com/usersvc/backend/internal/security"
	"github.com/usersvc/backend/internal/store"
)

const (
	msgInvalidCredentials  = "invalid credentials"
	msgInvalidRefreshToken = "invalid refresh token"
	msgMismatchedRefresh   = "mismatched or expired refresh token"
)

// credentialsReader is the slice of UserService that AuthService needs.
type credentialsReader interface {
	GetCredentialsByEmail(ctx context.Context, email string) (model.Credentials, error)
}

type tokenCodec interface {
	Sign(subject string, kind security.TokenKind, ttl time.Duration) (string, error)
	Validate(token string, kind security.TokenKind) bool
	Claims(token string, kind security.TokenKind) (security.Claims, error)
}

// AuthService issues, renews and rotates token pairs. It holds no state of
// its own beyond the refresh token store.
type AuthService struct {
	users      credentialsReader
	hasher     security.PasswordHasher
	codec      tokenCodec
	tokens     store.RefreshTokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

type AuthConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewAuthService(
	users credentialsReader,
	hasher security.PasswordHasher,
	codec tokenCodec,
	tokens store.RefreshTokenStore,
	cfg AuthConfig,
	logger *slog.Logger,
) (*AuthService, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", security.ErrMisconfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:      users,
		hasher:     hasher,
		codec:      codec,
		tokens:     tokens,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     logger,
	}, nil
}

// Login verifies the credentials and issues a new token pair. The refresh
// token replaces any previously stored one for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.TokenPair{}, newError(ErrInvalidInput, "email and password are required")
	}

	creds, err := s.users.GetCredentialsByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return model.TokenPair{}, newError(ErrUnauthorized, msgInvalidCredentials)
	}
	if err != nil {
		return model.TokenPair{}, err
	}
	if !s.hasher.Verify(password, creds.PasswordHash) {
		return model.TokenPair{}, newError(ErrUnauthorized, msgInvalidCredentials)
	}

	access, err := s.codec.Sign(creds.Email, security.AccessToken, s.accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.codec.Sign(creds.Email, security.RefreshToken, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	if err := s.tokens.Put(ctx, creds.Email, refresh); err != nil {
		return model.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("user logged in", "email", creds.Email)
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RenewAccessToken issues a fresh access token. The refresh token is unchanged.
func (s *AuthService) RenewAccessToken(ctx context.Context, refreshToken string) (string, error) {
	subject, err := s.checkRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return s.codec.Sign(subject, security.AccessToken, s.accessTTL)
}

// RotateRefreshToken issues a new refresh token and supersedes the presented one.
func (s *AuthService) RotateRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	subject, err := s.checkRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	rotated, err := s.codec.Sign(subject, security.RefreshToken, s.refreshTTL)
	if err != nil {
		return "", err
	}
	if err := s.tokens.Put(ctx, subject, rotated); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("refresh token rotated", "email", subject, "token", security.Mask(rotated))
	return rotated, nil
}

// ValidateAccessToken reports whether token is a live access token.
func (s *AuthService) ValidateAccessToken(token string) bool {
	if token == "" {
		return false
	}
	return s.codec.Validate(token, security.AccessToken)
}

// Principal derives the request identity from an access token.
func (s *AuthService) Principal(token string) (model.Principal, error) {
	if !s.ValidateAccessToken(token) {
		return model.Principal{}, newError(ErrUnauthorized, "invalid access token")
	}
	claims, err := s.codec.Claims(token, security.AccessToken)
	if err != nil {
		return model.Principal{}, unauthorizedFromParse(err, "invalid access token")
	}
	return model.Principal{Email: claims.Subject, Authenticated: true}, nil
}

// checkRefreshToken returns the subject of refreshToken when it verifies and
// is the token currently stored for that subject.
func (s *AuthService) checkRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", newError(ErrInvalidInput, "refreshToken is required")
	}
	if !s.codec.Validate(refreshToken, security.RefreshToken) {
		return "", newError(ErrUnauthorized, msgInvalidRefreshToken)
	}
	claims, err := s.codec.Claims(refreshToken, security.RefreshToken)
	if err != nil {
		return "", unauthorizedFromParse(err, msgInvalidRefreshToken)
	}

	stored, ok, err := s.tokens.Get(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		s.logger.Warn("refresh token does not match the stored one", "email", claims.Subject, "token", security.Mask(refreshToken))
		return "", newError(ErrUnauthorized, msgMismatchedRefresh)
	}

	if _, err := s.users.GetCredentialsByEmail(ctx, claims.Subject); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", newError(ErrUnauthorized, msgInvalidRefreshToken)
		}
		return "", err
	}
	return claims.Subject, nil
}

func unauthorizedFromParse(err error, message string) error {
	if errors.Is(err, security.ErrTokenParse) {
		return newError(ErrUnauthorized, message)
	}
	return err
}
