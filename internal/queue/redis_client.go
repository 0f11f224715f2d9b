package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisClient pushes jobs onto Redis lists.
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient connects to the Redis instance at url (redis:// or rediss://).
func NewRedisClient(url string) (*RedisClient, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	// Callers bound each push with their own deadline.
	opts.ContextTimeoutEnabled = true
	return &RedisClient{rdb: redis.NewClient(opts)}, nil
}

// NewRedisClientFrom wraps an existing go-redis client. The caller's options
// decide whether context deadlines apply.
func NewRedisClientFrom(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

// Enqueue appends job to the tail of queueName. Workers pop from the head,
// so jobs are consumed oldest first.
func (c *RedisClient) Enqueue(ctx context.Context, queueName string, job Job) error {
	payload, err := EncodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := c.rdb.RPush(ctx, queueName, payload).Err(); err != nil {
		return fmt.Errorf("redis rpush queue=%s: %w", queueName, err)
	}
	return nil
}

// Ping checks connectivity.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

var _ Client = (*RedisClient)(nil)
