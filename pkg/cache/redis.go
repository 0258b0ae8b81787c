package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// Retry defaults for RedisCache.
const (
	DefaultRedisAttempts = 3
	DefaultRedisBackoff  = 200 * time.Millisecond
)

// RedisCache implements Cache on a Redis server so that several machines can
// share routing reports. Transient connection failures are retried with
// exponential backoff; redis.Nil is a miss.
type RedisCache struct {
	client   *redis.Client
	attempts int
	backoff  time.Duration
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRetry overrides the number of attempts and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) RedisOption {
	return func(c *RedisCache) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.backoff = backoff
	}
}

// NewRedisCache connects to the server at url (redis://[user:pass@]host:port/db)
// and verifies the connection with a PING.
func NewRedisCache(ctx context.Context, url string, opts ...RedisOption) (Cache, error) {
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := &RedisCache{
		client:   redis.NewClient(ro),
		attempts: DefaultRedisAttempts,
		backoff:  DefaultRedisBackoff,
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.do(ctx, func() error { return c.client.Ping(ctx).Err() }); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("connect %s: %w", ro.Addr, err)
	}
	return c, nil
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.do(ctx, func() error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in the cache.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.do(ctx, func() error { return c.client.Set(ctx, key, data, ttl).Err() })
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.do(ctx, func() error { return c.client.Del(ctx, key).Err() })
}

// Close closes the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) do(ctx context.Context, fn func() error) error {
	return RetryWithBackoff(ctx, c.attempts, c.backoff, func() error {
		err := fn()
		if transient(err) {
			return Retryable(fmt.Errorf("%w: %w", ErrBackend, err))
		}
		return err
	})
}

// transient reports whether err is a connection-level failure worth retrying.
func transient(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
