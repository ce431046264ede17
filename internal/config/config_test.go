package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secret(b byte) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string(b), 32)))
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", secret('a'))
	t.Setenv("JWT_REFRESH_SECRET", secret('r'))
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 18, cfg.Users.MinimumAge)
	assert.Equal(t, []string{"/api/auth/", "/swagger/", "/ping", "/metrics"}, cfg.Auth.PublicPrefixes)
	assert.Equal(t, "/api/users", cfg.Auth.RegistrationPath)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Storage.RefreshStore)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "5")
	t.Setenv("JWT_REFRESH_TTL_DAYS", "2")
	t.Setenv("APP_MINIMUM_AGE", "21")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REFRESH_STORE", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 48*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 21, cfg.Users.MinimumAge)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "redis", cfg.Storage.RefreshStore)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "access secret not base64", key: "JWT_ACCESS_SECRET", val: "%%%"},
		{name: "refresh secret too short", key: "JWT_REFRESH_SECRET", val: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "same secrets", key: "JWT_REFRESH_SECRET", val: secret('a')},
		{name: "zero access ttl", key: "JWT_ACCESS_TTL_MINUTES", val: "0"},
		{name: "negative refresh ttl", key: "JWT_REFRESH_TTL_DAYS", val: "-1"},
		{name: "negative minimum age", key: "APP_MINIMUM_AGE", val: "-3"},
		{name: "unknown driver", key: "STORE_DRIVER", val: "mysql"},
		{name: "unknown refresh store", key: "REFRESH_STORE", val: "etcd"},
		{name: "ttl not a number", key: "JWT_ACCESS_TTL_MINUTES", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", secret('r'))

	_, err := Load()
	require.ErrorIs(t, err, ErrInvalidConfig)
}
