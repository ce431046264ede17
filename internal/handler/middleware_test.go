package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usersvc/backend/internal/model"
)

// fakePrincipals accepts exactly one token.
type fakePrincipals struct {
	valid string
}

func (f fakePrincipals) Principal(token string) (model.Principal, error) {
	if token == f.valid {
		return model.Principal{Email: "a@x.com", Authenticated: true}, nil
	}
	return model.Principal{}, errors.New("invalid")
}

func newTestGate(buf *bytes.Buffer) *Gate {
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	return NewGate(fakePrincipals{valid: "good-token-123"}, GateConfig{
		PublicPrefixes:   []string{"/api/auth/", "/swagger/", " ", "/ping"},
		RegistrationPath: "/api/users",
	}, logger, nil)
}

func TestGateDecide(t *testing.T) {
	gate := newTestGate(&bytes.Buffer{})

	tests := []struct {
		name        string
		method      string
		path        string
		auth        string
		wantOutcome string
		wantReason  string
		wantEmail   string
		wantToken   string
	}{
		{name: "public prefix", method: http.MethodPost, path: "/api/auth/authenticate", wantOutcome: "allowed", wantReason: "public path"},
		{name: "public prefix ignores bad token", method: http.MethodGet, path: "/swagger/doc.json", auth: "Bearer junk", wantOutcome: "allowed", wantReason: "public path"},
		{name: "exact public path", method: http.MethodGet, path: "/ping", wantOutcome: "allowed", wantReason: "public path"},
		{name: "below public path", method: http.MethodGet, path: "/ping/deep", wantOutcome: "allowed", wantReason: "public path"},
		{name: "public path is not a string prefix", method: http.MethodGet, path: "/pingfoo", wantOutcome: "not allowed", wantReason: "missing bearer token"},
		{name: "registration", method: http.MethodPost, path: "/api/users", wantOutcome: "allowed", wantReason: "registration"},
		{name: "registration trailing slash", method: http.MethodPost, path: "/api/users/", wantOutcome: "allowed", wantReason: "registration"},
		{name: "listing is not registration", method: http.MethodGet, path: "/api/users", wantOutcome: "not allowed", wantReason: "missing bearer token"},
		{name: "valid token", method: http.MethodGet, path: "/api/users/1", auth: "Bearer good-token-123", wantOutcome: "allowed", wantReason: "authenticated", wantEmail: "a@x.com"},
		{name: "lowercase scheme is absent", method: http.MethodGet, path: "/api/users/1", auth: "bearer good-token-123", wantOutcome: "not allowed", wantReason: "missing bearer token"},
		{name: "empty bearer", method: http.MethodGet, path: "/api/users/1", auth: "Bearer ", wantOutcome: "not allowed", wantReason: "missing bearer token"},
		{name: "invalid token is masked", method: http.MethodGet, path: "/api/users/1", auth: "Bearer abcdefghijkl", wantOutcome: "not allowed", wantReason: "invalid token", wantToken: "abcd...ijkl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}

			d := gate.Decide(req)
			assert.Equal(t, tt.wantOutcome, d.Outcome)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.wantToken, d.Token)
			if tt.wantEmail == "" {
				assert.Nil(t, d.Principal)
				return
			}
			require.NotNil(t, d.Principal)
			assert.Equal(t, tt.wantEmail, d.Principal.Email)
		})
	}
}

func TestGateMiddlewareAttachesPrincipalAndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	gate := newTestGate(&buf)

	r := gin.New()
	r.Use(gate.Middleware())
	r.GET("/whoami", func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "email": p.Email})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer good-token-123")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"email":"a@x.com"}`, w.Body.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "/whoami", entry["path"])
	assert.Equal(t, "allowed", entry["outcome"])
	assert.NotContains(t, buf.String(), "good-token-123")
}

func TestGateForwardsUnauthenticatedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	gate := newTestGate(&buf)

	r := gin.New()
	r.Use(gate.Middleware())
	r.GET("/open", func(c *gin.Context) {
		_, ok := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer abcdefghijkl")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":false}`, w.Body.String())
	assert.Contains(t, buf.String(), `"outcome":"not allowed"`)
	assert.Contains(t, buf.String(), `"token":"abcd...ijkl"`)
	assert.NotContains(t, buf.String(), "abcdefghijkl")
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gate := newTestGate(&bytes.Buffer{})

	r := gin.New()
	r.Use(gate.Middleware())
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
	assert.Len(t, body.Errors, 1)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good-token-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
