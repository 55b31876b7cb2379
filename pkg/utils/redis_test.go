package utils

import (
	"context"
	"testing"
	"time"
)

func TestRedisConfigDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379", PoolSize: 5}.withDefaults()
	if cfg.PoolSize != 5 {
		t.Fatalf("explicit pool size overwritten: %d", cfg.PoolSize)
	}
	if cfg.DialTimeout != 3*time.Second || cfg.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}
