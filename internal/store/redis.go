package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagesnap/pagesnap/internal/models"
)

// RedisStore persists cookie sets in Redis, relying on native key TTL.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed cookie store from a redis:// URL.
func NewRedisStore(redisURL string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cookie store initialized", "addr", opts.Addr, "db", opts.DB)
	return &RedisStore{client: client, logger: logger}, nil
}

// Load retrieves a cookie set, or nil when absent or expired.
func (s *RedisStore) Load(ctx context.Context, key string) (models.CookieSet, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cookie set: %w", err)
	}

	cookies, err := models.DecodeCookieSet(data)
	if err != nil {
		s.logger.Warn("failed to decode stored cookie set", "key", key, "error", err)
		return nil, nil
	}
	return cookies, nil
}

// Save persists a cookie set with the given TTL.
func (s *RedisStore) Save(ctx context.Context, key string, cookies models.CookieSet, ttl time.Duration) error {
	data, err := cookies.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode cookie set: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cookie set: %w", err)
	}

	s.logger.Debug("cookie set persisted", "key", key, "cookies", len(cookies), "ttl", ttl)
	return nil
}

// Delete removes a cookie set.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cookie set: %w", err)
	}
	s.logger.Debug("cookie set deleted", "key", key)
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
