package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Service handles all Redis-related operations
type Service struct {
	client *redis.Client
}

// NewService connects to Redis and verifies the connection
func NewService(ctx context.Context, opts Options) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,
		// Timeout settings
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &Service{client: client}, nil
}

// Close closes the Redis connection
func (r *Service) Close() error {
	return r.client.Close()
}

// Ping checks the connection
func (r *Service) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Client returns the Redis client for advanced operations
func (r *Service) Client() *redis.Client {
	return r.client
}
