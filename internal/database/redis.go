package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mikelady/socialconnect/internal/services"
)

// stateKeyPrefix namespaces consumed OAuth state signatures
const stateKeyPrefix = "oauth:state:"

// Redis wraps a go-redis client
type Redis struct {
	Client *redis.Client
}

// NewRedis connects and pings the server
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Ping checks if Redis is available
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// setNXer is the slice of the redis client the nonce store needs
type setNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// Compile-time interface compliance check
var _ services.NonceStore = (*RedisNonceStore)(nil)

// RedisNonceStore enforces single use of state tokens across instances
type RedisNonceStore struct {
	client setNXer
}

// NewRedisNonceStore creates a nonce store on an existing connection
func NewRedisNonceStore(r *Redis) *RedisNonceStore {
	return &RedisNonceStore{client: r.Client}
}

// Consume sets the key only if absent. The key expires with the state token.
func (s *RedisNonceStore) Consume(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, stateKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording state nonce: %w", err)
	}
	return ok, nil
}
