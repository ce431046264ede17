package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usersvc/backend/internal/config"
)

func TestBuildPostgresURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.PostgresConfig
		want    string
		wantErr error
	}{
		{
			name: "database url wins",
			cfg:  config.PostgresConfig{DatabaseURL: "postgres://u@db/app", User: "other", Database: "other"},
			want: "postgres://u@db/app",
		},
		{
			name: "parts with password",
			cfg:  config.PostgresConfig{Host: "db", Port: "6543", User: "app", Password: "p@ss", Database: "users", SSLMode: "require"},
			want: "postgres://app:p%40ss@db:6543/users?sslmode=require",
		},
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "app", Database: "users"},
			want: "postgres://app@localhost:5432/users?sslmode=disable",
		},
		{
			name:    "missing user",
			cfg:     config.PostgresConfig{Database: "users"},
			wantErr: ErrMissingDSN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPostgresURL(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNoRows(pgx.ErrNoRows))
	assert.True(t, IsNoRows(fmt.Errorf("find user: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("boom")))

	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate")))
}
