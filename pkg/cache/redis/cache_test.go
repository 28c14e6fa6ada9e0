package redis

import (
	"context"
	"testing"
	"time"

	"github.com/chatgate/chatgate/pkg/config"
)

// The tests here run against an unreachable server on purpose: the
// degrade-to-miss contract is the part of this backend the gateway
// depends on, and it must hold without Redis.

func newUnreachableCache(t *testing.T) *Cache {
	t.Helper()
	c := New(config.RedisConfig{Addr: "127.0.0.1:1"}, time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetUnreachableIsMiss(t *testing.T) {
	c := newUnreachableCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	answer, ok := c.Get(ctx, "k")
	if ok {
		t.Errorf("expected miss from unreachable server, got %q", answer)
	}

	stats, _ := c.Stats(ctx)
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}
}

func TestPutUnreachableReturnsError(t *testing.T) {
	c := newUnreachableCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Put(ctx, "k", "v"); err == nil {
		t.Error("expected error from unreachable server")
	}
}

func TestPingUnreachable(t *testing.T) {
	c := newUnreachableCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err == nil {
		t.Error("expected ping failure")
	}
}
