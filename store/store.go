package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultOpTimeout = 3 * time.Second

var (
	// ErrUnavailable is returned when the backing Redis instance cannot be
	// reached or an operation times out.
	ErrUnavailable = errors.New("verification store unavailable")
	// ErrNotFound is returned by Get when the key does not exist or has
	// already expired.
	ErrNotFound = errors.New("verification store key not found")
)

// Store is a thin adapter over a Redis client. All operations are bounded by
// a per-call timeout and safe for concurrent use.
type Store struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

// New wraps client with the given per-operation timeout. A non-positive
// timeout falls back to 3 seconds.
func New(client redis.UniversalClient, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Store{
		client:    client,
		opTimeout: opTimeout,
	}
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Get returns the string value stored at key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

// Set writes key with the given TTL, overwriting any previous value.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SetNX writes key with the given TTL only if the key does not already
// exist. It reports whether the write took place. The single round-trip
// makes check-and-set race free.
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// Del removes the given keys. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Incr increments the fixed-window counter at key and returns the new value.
// The window TTL is attached when the counter is created and never extended,
// so the counter expires window-aligned with its first hit.
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return incr.Val(), nil
}
