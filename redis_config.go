package launchbase

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisAddr is used when REDIS_ADDR is unset.
const DefaultRedisAddr = "localhost:6379"

// RedisConfig addresses the Redis instance backing RedisSequence.
//
// Environment variables read (with defaults):
//   - REDIS_ADDR (default: "localhost:6379")
//   - REDIS_PASSWORD (default: "")
//   - REDIS_DB (default: 0)
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Options returns redis.Options for this configuration
func (c RedisConfig) Options() *redis.Options {
	addr := c.Addr
	if addr == "" {
		addr = DefaultRedisAddr
	}
	return &redis.Options{
		Addr:     addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

// NewRedisClient connects and pings Redis with a bounded timeout.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(cfg.Options())

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Options().Addr, err)
	}
	return client, nil
}
