package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLinkNotFound signals that the key is absent: expired, evicted or never written.
	ErrLinkNotFound = errors.New("link not found")

	// ErrInvalidTTL rejects writes that would never expire.
	ErrInvalidTTL = errors.New("link ttl must be positive")
)

// LinkStore is the contract over the ephemeral key-value store holding link records.
type LinkStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type redisLinkStore struct {
	client redis.UniversalClient
}

// NewLinkStore returns a Redis-backed LinkStore.
func NewLinkStore(client redis.UniversalClient) LinkStore {
	return &redisLinkStore{client: client}
}

func (s *redisLinkStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *redisLinkStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}
