package dedup

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "dedup:post:"

// RedisGate implements Gate on Redis. SET NX makes check-and-insert a
// single atomic operation, and the state survives process restarts.
// Keys expire with the post retention window so the set does not grow
// without bound.
type RedisGate struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisGate connects to Redis and verifies the connection
func NewRedisGate(redisURL string, ttl time.Duration) (*RedisGate, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisGate{redis: client, ttl: ttl}, nil
}

// Close releases the Redis connection
func (g *RedisGate) Close() error { return g.redis.Close() }

// Admit returns the ids whose marker key did not exist yet
func (g *RedisGate) Admit(ctx context.Context, ids []string) ([]string, error) {
	var admitted []string
	for _, id := range ids {
		set, err := g.redis.SetNX(ctx, keyPrefix+id, 1, g.ttl).Result()
		if err != nil {
			return admitted, fmt.Errorf("dedup setnx %s: %w", id, err)
		}
		if set {
			admitted = append(admitted, id)
		}
	}
	return admitted, nil
}

// Seen reports whether an id's marker key exists
func (g *RedisGate) Seen(ctx context.Context, id string) (bool, error) {
	n, err := g.redis.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("dedup exists %s: %w", id, err)
	}
	return n > 0, nil
}
