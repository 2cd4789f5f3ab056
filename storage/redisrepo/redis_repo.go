package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	ierrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/redis/go-redis/v9"
)

var _ storage.Repo = (*RedisRepo)(nil)

// RedisRepo stores session records in Redis so a session can be shared across hosts.
type RedisRepo struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
	owned     *redis.Client
}

// Option configures a RedisRepo
type Option func(*RedisRepo)

// WithKeyPrefix namespaces every key as "<prefix>:<key>"
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisRepo) {
		r.keyPrefix = prefix
	}
}

// WithTTL expires records that are not rewritten within ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisRepo) {
		r.ttl = ttl
	}
}

func New(client redis.Cmdable, opts ...Option) *RedisRepo {
	r := &RedisRepo{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromURL parses a redis:// URL and connects lazily
func NewFromURL(url string, opts ...Option) (*RedisRepo, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %w", ierrors.ErrInvalidConfig, err)
	}
	client := redis.NewClient(options)
	r := New(client, opts...)
	r.owned = client
	return r, nil
}

// Close releases the client created by NewFromURL. Clients passed to New are left open.
func (r *RedisRepo) Close() error {
	if r.owned == nil {
		return nil
	}
	return r.owned.Close()
}

func (r *RedisRepo) prefixedKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + ":" + key
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefixedKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %w", ierrors.ErrStorage, key, err)
	}
	return val, true, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefixedKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ierrors.ErrStorage, key, err)
	}
	return nil
}

func (r *RedisRepo) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefixedKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ierrors.ErrStorage, key, err)
	}
	return nil
}
