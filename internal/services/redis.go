package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RedisProvider reports Redis availability
type RedisProvider struct {
	BaseProvider
	client *redis.Client
}

// NewRedisProvider wraps an existing client
func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{
		BaseProvider: BaseProvider{serviceType: "redis"},
		client:       client,
	}
}

// HealthCheck checks if Redis is available
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
