package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid config")

const minSecretBytes = 32

type Config struct {
	HTTP     HTTPConfig
	Auth     AuthConfig
	Users    UsersConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

type AuthConfig struct {
	AccessSecret     string   `env:"JWT_ACCESS_SECRET,required"`
	RefreshSecret    string   `env:"JWT_REFRESH_SECRET,required"`
	AccessTTLMinutes int      `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	RefreshTTLDays   int      `env:"JWT_REFRESH_TTL_DAYS" envDefault:"30"`
	PublicPrefixes   []string `env:"AUTH_PUBLIC_PREFIXES" envSeparator:"," envDefault:"/api/auth/,/swagger/,/ping,/metrics"`
	RegistrationPath string   `env:"AUTH_REGISTRATION_PATH" envDefault:"/api/users"`
	BcryptCost       int      `env:"BCRYPT_COST" envDefault:"10"`
}

type UsersConfig struct {
	MinimumAge int `env:"APP_MINIMUM_AGE" envDefault:"18"`
}

// StorageConfig selects the user store and the refresh token store backends.
type StorageConfig struct {
	Driver       string `env:"STORE_DRIVER" envDefault:"postgres"`
	RefreshStore string `env:"REFRESH_STORE" envDefault:"memory"`
}

type PostgresConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Host        string `env:"PGHOST" envDefault:"localhost"`
	Port        string `env:"PGPORT" envDefault:"5432"`
	User        string `env:"PGUSER"`
	Password    string `env:"PGPASSWORD"`
	Database    string `env:"PGDATABASE"`
	SSLMode     string `env:"PGSSLMODE" envDefault:"disable"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	access, err := c.Auth.AccessKey()
	if err != nil {
		return err
	}
	refresh, err := c.Auth.RefreshKey()
	if err != nil {
		return err
	}
	if string(access) == string(refresh) {
		return fmt.Errorf("%w: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ", ErrInvalidConfig)
	}
	if c.Auth.AccessTTLMinutes <= 0 {
		return fmt.Errorf("%w: JWT_ACCESS_TTL_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.Auth.RefreshTTLDays <= 0 {
		return fmt.Errorf("%w: JWT_REFRESH_TTL_DAYS must be positive", ErrInvalidConfig)
	}
	if c.Users.MinimumAge < 0 {
		return fmt.Errorf("%w: APP_MINIMUM_AGE must not be negative", ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.Storage.Driver)
	}
	switch c.Storage.RefreshStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown REFRESH_STORE %q", ErrInvalidConfig, c.Storage.RefreshStore)
	}
	return nil
}

// AccessKey decodes the access-token signing key.
func (a AuthConfig) AccessKey() ([]byte, error) {
	return decodeSecret("JWT_ACCESS_SECRET", a.AccessSecret)
}

// RefreshKey decodes the refresh-token signing key.
func (a AuthConfig) RefreshKey() ([]byte, error) {
	return decodeSecret("JWT_REFRESH_SECRET", a.RefreshSecret)
}

func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLDays) * 24 * time.Hour
}

func decodeSecret(name, value string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", ErrInvalidConfig, name)
	}
	if len(key) < minSecretBytes {
		return nil, fmt.Errorf("%w: %s must decode to at least %d bytes", ErrInvalidConfig, name, minSecretBytes)
	}
	return key, nil
}
