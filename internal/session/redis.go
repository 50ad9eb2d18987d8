package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production backend: tokens live in Redis with a TTL, so
// expiry needs no sweeping on our side and sessions survive process restarts.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// compile-time check to ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With(slog.String("component", "session_store_redis")),
	}
}

func (s *RedisStore) Set(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session get: %w", err)
	}
	return userID, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (s *RedisStore) SetUsername(ctx context.Context, userID, name string) error {
	// Username keys carry no TTL: display names outlive sessions.
	if err := s.client.Set(ctx, usernameKeyPrefix+userID, name, 0).Err(); err != nil {
		return fmt.Errorf("username set: %w", err)
	}
	return nil
}

func (s *RedisStore) GetUsername(ctx context.Context, userID string) (string, error) {
	name, err := s.client.Get(ctx, usernameKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("username get: %w", err)
	}
	return name, nil
}

func (s *RedisStore) Close() error {
	s.logger.Debug("Closing redis client")
	return s.client.Close()
}
