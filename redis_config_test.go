package launchbase

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisConfigOptionsDefaults(t *testing.T) {
	opts := RedisConfig{}.Options()

	if opts.Addr != DefaultRedisAddr {
		t.Errorf("expected default addr %s, got %s", DefaultRedisAddr, opts.Addr)
	}
	if opts.Password != "" {
		t.Errorf("expected empty password, got %s", opts.Password)
	}
	if opts.DB != 0 {
		t.Errorf("expected db 0, got %d", opts.DB)
	}
}

func TestRedisConfigFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REDIS_ADDR", "redis.example.com:6380")
	t.Setenv("REDIS_PASSWORD", "secret123")
	t.Setenv("REDIS_DB", "5")

	opts := ConfigFromEnv().Redis.Options()

	if opts.Addr != "redis.example.com:6380" {
		t.Errorf("expected addr redis.example.com:6380, got %s", opts.Addr)
	}
	if opts.Password != "secret123" {
		t.Errorf("expected password secret123, got %s", opts.Password)
	}
	if opts.DB != 5 {
		t.Errorf("expected db 5, got %d", opts.DB)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr}); err == nil {
		t.Fatal("expected ping failure")
	}
}
