package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	if err := cache.Set(ctx, "queue:orders", `{"url":"http://localhost:4566/000000000000/orders"}`, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := cache.Get(ctx, "queue:orders")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val == "" {
		t.Error("expected cached value, got empty string")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	val, err := cache.Get(ctx, "queue:missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "" {
		t.Errorf("expected empty string on miss, got '%s'", val)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	cache.Set(ctx, "queue:orders", "value", 0)
	if err := cache.Delete(ctx, "queue:orders"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	val, _ := cache.Get(ctx, "queue:orders")
	if val != "" {
		t.Errorf("expected empty string after delete, got '%s'", val)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	cache.Set(ctx, "queue:orders", "value", 1)

	// Force the entry past its expiry instead of sleeping
	cache.mu.Lock()
	entry := cache.entries["queue:orders"]
	entry.expiresAt = time.Now().Add(-time.Second)
	cache.entries["queue:orders"] = entry
	cache.mu.Unlock()

	val, err := cache.Get(ctx, "queue:orders")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "" {
		t.Errorf("expected expired entry to miss, got '%s'", val)
	}
}

func TestMemoryCachePing(t *testing.T) {
	if err := NewMemoryCache().Ping(context.Background()); err != nil {
		t.Errorf("expected ping to succeed, got %v", err)
	}
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			cache.Set(ctx, "queue:orders", "value", 0)
		}
	}()
	for i := 0; i < 100; i++ {
		cache.Get(ctx, "queue:orders")
	}
	<-done
}
