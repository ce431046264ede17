package model

const TokenTypeBearer = "Bearer"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AccessTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

type LoginResponse struct {
	TokenType    string `json:"tokenType"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AccessTokenResponse struct {
	TokenType   string `json:"tokenType"`
	AccessToken string `json:"accessToken"`
}

type RefreshTokenResponse struct {
	TokenType    string `json:"tokenType"`
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is what a successful login issues.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Credentials is the read-only view of a user used for authentication.
type Credentials struct {
	Email        string
	PasswordHash string
}

// Principal is the identity derived from a validated access token. It lives
// for a single request.
type Principal struct {
	Email         string
	Authenticated bool
}
