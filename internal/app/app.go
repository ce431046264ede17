// Package app wires configuration, stores, services and the HTTP router into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/usersvc/backend/internal/config"
	"github.com/usersvc/backend/internal/db"
	"github.com/usersvc/backend/internal/handler"
	"github.com/usersvc/backend/internal/metrics"
	"github.com/usersvc/backend/internal/security"
	"github.com/usersvc/backend/internal/service"
	"github.com/usersvc/backend/internal/store"
)

const (
	redisConnectAttempts = 5
	redisConnectInterval = 2 * time.Second
	shutdownTimeout      = 10 * time.Second
	readHeaderTimeout    = 5 * time.Second
)

type App struct {
	cfg     config.Config
	logger  *slog.Logger
	router  *gin.Engine
	closers []func()
}

// New builds the application. With STORE_DRIVER=postgres it connects and
// applies pending migrations before returning.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	accessKey, err := cfg.Auth.AccessKey()
	if err != nil {
		return nil, err
	}
	refreshKey, err := cfg.Auth.RefreshKey()
	if err != nil {
		return nil, err
	}
	codec, err := security.NewTokenCodec(accessKey, refreshKey, security.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	repo, err := a.userStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	tokens, err := a.refreshStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	users := service.NewUserService(repo, hasher, cfg.Users.MinimumAge, logger)
	auth, err := service.NewAuthService(users, hasher, codec, tokens, service.AuthConfig{
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	m := metrics.New()
	a.router = handler.NewRouter(handler.RouterDeps{
		Auth:  handler.NewAuthHandler(auth, logger, m),
		Users: handler.NewUserHandler(users, logger, m),
		Gate: handler.NewGate(auth, handler.GateConfig{
			PublicPrefixes:   cfg.Auth.PublicPrefixes,
			RegistrationPath: cfg.Auth.RegistrationPath,
		}, logger, m),
		Metrics: m,
		Logger:  logger,
	})
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}

// Close releases the store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) userStore(ctx context.Context) (service.UserRepository, error) {
	switch a.cfg.Storage.Driver {
	case "memory":
		a.logger.Warn("using in-memory user store; data is lost on restart")
		return db.NewMemory(), nil
	default:
		pool, err := db.NewPostgresPool(ctx, a.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		pg := &db.Postgres{Pool: pool}
		if err := pg.Migrate(ctx, a.logger); err != nil {
			return nil, err
		}
		return pg, nil
	}
}

func (a *App) refreshStore(ctx context.Context) (store.RefreshTokenStore, error) {
	switch a.cfg.Storage.RefreshStore {
	case "redis":
		client, err := store.ConnectRedis(ctx, a.cfg.Redis.URL, redisConnectAttempts, redisConnectInterval)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Error("failed to close redis client", "error", err)
			}
		})
		return store.NewRedisRefreshStore(client, a.cfg.Auth.RefreshTTL()), nil
	default:
		return store.NewMemoryRefreshStore(), nil
	}
}

// Migrate connects to Postgres and applies pending migrations.
func Migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	pg := &db.Postgres{Pool: pool}
	if err := pg.Migrate(ctx, logger); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}
