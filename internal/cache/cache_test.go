package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestKeyShapes(t *testing.T) {
	if got := CitationsKey("202501"); got != "pd:citations:202501" {
		t.Fatalf("CitationsKey = %q", got)
	}
	if got := SummaryKey("2301.07041", "claude-sonnet-4", "v1"); got != "pd:paper:2301.07041:summary:claude-sonnet-4:v1" {
		t.Fatalf("SummaryKey = %q", got)
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set(ctx, "k", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "value" {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCache: %v", err)
	}
	defer c.Close()

	if _, ok, _ := c.Get(ctx, "pd:citations:202501"); ok {
		t.Fatal("expected miss")
	}
	if err := c.Set(ctx, "pd:citations:202501", []byte(`[{"id":"x"}]`), TTLCitations); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "pd:citations:202501")
	if err != nil || !ok || string(got) != `[{"id":"x"}]` {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}

	// Overwrite under the same key.
	if err := c.Set(ctx, "pd:citations:202501", []byte("new"), TTLCitations); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, ok, _ = c.Get(ctx, "pd:citations:202501")
	if !ok || string(got) != "new" {
		t.Fatalf("overwrite Get = %q ok=%v", got, ok)
	}
}

func TestSQLiteCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCache: %v", err)
	}
	defer c.Close()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.now = func() time.Time { return base.Add(time.Hour) }
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}
