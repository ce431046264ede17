package security

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenParse    = errors.New("error while parsing claims from token")
	ErrMisconfigured = errors.New("token codec config invalid")
)

// TokenKind selects which secret signs and verifies a token.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

func (k TokenKind) String() string {
	switch k {
	case AccessToken:
		return "access"
	case RefreshToken:
		return "refresh"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	ID        string
}

// TokenCodec signs and verifies HS256 JWTs with one secret per token kind.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
	logger        *slog.Logger
}

type CodecOption func(*TokenCodec)

// WithClock replaces time.Now for signing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *TokenCodec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewTokenCodec(accessSecret, refreshSecret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, fmt.Errorf("%w: both secrets are required", ErrMisconfigured)
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}
	c := &TokenCodec{
		accessSecret:  append([]byte(nil), accessSecret...),
		refreshSecret: append([]byte(nil), refreshSecret...),
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign issues a token for subject that expires ttl from now.
func (c *TokenCodec) Sign(subject string, kind TokenKind, ttl time.Duration) (string, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return "", err
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Validate reports whether token carries a valid signature for kind and has
// not expired. It never returns an error; failures are logged with the token masked.
func (c *TokenCodec) Validate(token string, kind TokenKind) bool {
	_, err := c.parse(token, kind)
	if err == nil {
		return true
	}

	masked := Mask(token)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		c.logger.Warn("token is expired", "kind", kind.String(), "token", masked)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		c.logger.Error("invalid token signature", "kind", kind.String(), "token", masked)
	case errors.Is(err, jwt.ErrTokenMalformed):
		c.logger.Warn("malformed token", "kind", kind.String(), "token", masked)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		c.logger.Error("unsupported token", "kind", kind.String(), "token", masked, "error", err)
	default:
		c.logger.Warn("invalid token", "kind", kind.String(), "token", masked, "error", err)
	}
	return false
}

// Claims re-verifies token and returns its claims, or ErrTokenParse.
func (c *TokenCodec) Claims(token string, kind TokenKind) (Claims, error) {
	claims, err := c.parse(token, kind)
	if err != nil {
		c.logger.Warn("error while parsing claims from token", "kind", kind.String(), "token", Mask(token), "error", err)
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenParse, err)
	}

	out := Claims{Subject: claims.Subject, ID: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func (c *TokenCodec) parse(token string, kind TokenKind) (*jwt.RegisteredClaims, error) {
	secret, err := c.secret(kind)
	if err != nil {
		return nil, err
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (c *TokenCodec) secret(kind TokenKind) ([]byte, error) {
	switch kind {
	case AccessToken:
		return c.accessSecret, nil
	case RefreshToken:
		return c.refreshSecret, nil
	default:
		return nil, fmt.Errorf("%w: unknown token kind %d", ErrMisconfigured, int(kind))
	}
}

// Mask redacts a token for logging: first 4 + "..." + last 4 characters.
// Tokens of 8 characters or fewer are returned unchanged.
func Mask(token string) string {
	runes := []rune(token)
	if len(runes) > 8 {
		return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
	}
	return token
}
