package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/password-policy/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	URL          string
	Prefix       string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
}

// RedisStore shares cached values between processes. Calls go through a circuit breaker so
// an unavailable redis costs one fast failure per request instead of a dial timeout.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	cb     *circuitbreaker.CircuitBreaker
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-cache",
			MaxFailures: 5,
			Timeout:     5 * time.Second,
		}),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := s.cb.Execute(func() error {
		b, err := s.client.Get(ctx, s.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		val, found = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return val, found, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cb.Execute(func() error {
		return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
	})
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.cb.Execute(func() error {
		return s.client.Del(ctx, s.prefix+key).Err()
	})
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
