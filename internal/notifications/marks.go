package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// MarkStore persists each subscriber's high-water mark: the highest order
// revision already turned into notifications for it.
type MarkStore interface {
	Get(ctx context.Context, subscriberKey string) (int64, bool, error)
	Set(ctx context.Context, subscriberKey string, revision int64) error
}

type markClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	HighWaterKey(subscriberKey string) string
}

// RedisMarkStore keeps marks in redis so they survive worker restarts.
type RedisMarkStore struct {
	client markClient
}

// NewRedisMarkStore wraps the shared redis client.
func NewRedisMarkStore(client markClient) (*RedisMarkStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisMarkStore{client: client}, nil
}

func (s *RedisMarkStore) Get(ctx context.Context, subscriberKey string) (int64, bool, error) {
	raw, err := s.client.Get(ctx, s.client.HighWaterKey(subscriberKey))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read mark %s: %w", subscriberKey, err)
	}
	revision, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse mark %s: %w", subscriberKey, err)
	}
	return revision, true, nil
}

func (s *RedisMarkStore) Set(ctx context.Context, subscriberKey string, revision int64) error {
	if err := s.client.Set(ctx, s.client.HighWaterKey(subscriberKey), strconv.FormatInt(revision, 10), 0); err != nil {
		return fmt.Errorf("write mark %s: %w", subscriberKey, err)
	}
	return nil
}
