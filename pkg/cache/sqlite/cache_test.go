package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	c, err := New(dbPath, ttl)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutAndGet(t *testing.T) {
	c := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := c.Put(ctx, "capital of france", "Paris"); err != nil {
		t.Fatal(err)
	}

	answer, ok := c.Get(ctx, "capital of france")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if answer != "Paris" {
		t.Errorf("unexpected answer: %s", answer)
	}

	// Miss for a different key
	_, ok = c.Get(ctx, "capital of italy")
	if ok {
		t.Error("expected cache miss for different key")
	}
}

func TestPutOverwrites(t *testing.T) {
	c := newTestCache(t, time.Hour)
	ctx := context.Background()

	_ = c.Put(ctx, "k", "old")
	if err := c.Put(ctx, "k", "new"); err != nil {
		t.Fatal(err)
	}

	answer, ok := c.Get(ctx, "k")
	if !ok || answer != "new" {
		t.Errorf("expected updated answer, got %q (hit=%v)", answer, ok)
	}
}

func TestTTLExpiration(t *testing.T) {
	c := newTestCache(t, 1*time.Millisecond)
	ctx := context.Background()

	if err := c.Put(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	if ok {
		t.Error("expected cache miss after TTL expiration")
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t, time.Hour)
	ctx := context.Background()

	_ = c.Put(ctx, "k1", "v")
	c.Get(ctx, "k1") // hit
	c.Get(ctx, "k2") // miss

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Hour)
	ctx := context.Background()

	_ = c.Put(ctx, "k1", "v")
	_ = c.Put(ctx, "k2", "v")

	if err := c.Clear(false); err != nil {
		t.Fatal(err)
	}

	stats, _ := c.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries after clear, got %d", stats.Entries)
	}
}
