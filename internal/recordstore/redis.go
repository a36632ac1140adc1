package recordstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/venom-hub/internal/config"
)

// RedisBackend stores records as plain string keys in Redis
type RedisBackend struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBackend connects to Redis and verifies the connection
func NewRedisBackend(cfg *config.RedisConfig, logger *slog.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisBackend{client: client, logger: logger}, nil
}

// NewRedisBackendFromClient wraps an existing client
func NewRedisBackendFromClient(client *redis.Client, logger *slog.Logger) *RedisBackend {
	return &RedisBackend{client: client, logger: logger}
}

// recordKey namespaces record keys in a shared Redis database
func (b *RedisBackend) recordKey(key string) string {
	return fmt.Sprintf("hub:record:%s", key)
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, b.recordKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("getting record: %w", err)
	}
	return data, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, b.recordKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("setting record: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.recordKey(key)).Err(); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
