package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisURL      = errors.New("failed to parse redis connection string")
	ErrRedisNotReady = errors.New("redis did not become ready")
)

const refreshKeyPrefix = "usersvc:refresh:"

// RedisRefreshStore keeps refresh tokens in Redis so they survive restarts and
// are shared between replicas. Keys expire together with the token they hold.
type RedisRefreshStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisRefreshStore(client redis.Cmdable, ttl time.Duration) *RedisRefreshStore {
	return &RedisRefreshStore{client: client, ttl: ttl}
}

func (s *RedisRefreshStore) Put(ctx context.Context, email, token string) error {
	if err := s.client.Set(ctx, refreshKey(email), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Get(ctx context.Context, email string) (string, bool, error) {
	token, err := s.client.Get(ctx, refreshKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load refresh token: %w", err)
	}
	return token, true, nil
}

func refreshKey(email string) string {
	return refreshKeyPrefix + email
}

// ConnectRedis parses url and pings the server, retrying a few times.
func ConnectRedis(ctx context.Context, url string, attempts int, interval time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrRedisURL, err)
	}
	if attempts < 1 {
		attempts = 1
	}

	client := redis.NewClient(opts)
	for i := 0; i < attempts; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(interval):
		}
	}
	_ = client.Close()
	return nil, errors.Join(ErrRedisNotReady, err)
}
