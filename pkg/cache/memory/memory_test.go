package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"arithmitra/pkg/cache"
)

func newTestCache(maxSize int) *MemoryCache {
	return NewMemoryCache(MemoryCacheConfig{
		LayerConfig:     cache.LayerConfig{Name: "test", DefaultTTL: time.Hour},
		MaxSize:         maxSize,
		CleanupInterval: time.Minute,
	})
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := newTestCache(0)
	defer c.Close()

	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}

	payload := []byte(`{"isFraud":true}`)
	if err := c.Set(ctx, "assess:fraud:1", payload, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "assess:fraud:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Expected %s, got %s", payload, got)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c := newTestCache(0)
	defer c.Close()

	ctx := context.Background()
	payload := []byte("abc")
	c.Set(ctx, "k", payload, 0)
	payload[0] = 'z'

	got, _ := c.Get(ctx, "k")
	got[1] = 'z'

	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("Stored value was aliased: %s", again)
	}
}

func TestMemoryCache_RejectsNilValue(t *testing.T) {
	c := newTestCache(0)
	defer c.Close()

	if err := c.Set(context.Background(), "k", nil, 0); err != cache.ErrInvalidValue {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c := newTestCache(0)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), 0)

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !cache.IsNotFound(err) {
		t.Errorf("Expected miss after delete, got %v", err)
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Deleting a missing key should succeed, got %v", err)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c := newTestCache(0)
	defer c.Close()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)

	now = now.Add(30 * time.Second)
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Errorf("Expected hit before expiry, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "k"); !cache.IsNotFound(err) {
		t.Errorf("Expected miss after expiry, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be removed on read, len=%d", c.Len())
	}
}

func TestMemoryCache_MaxTTLCap(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{
		LayerConfig: cache.LayerConfig{Name: "capped", DefaultTTL: time.Minute, MaxTTL: 2 * time.Minute},
	})
	defer c.Close()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Hour)

	now = now.Add(3 * time.Minute)
	if _, err := c.Get(ctx, "k"); !cache.IsNotFound(err) {
		t.Errorf("TTL should be capped at MaxTTL, got %v", err)
	}
}

func TestMemoryCache_LRU(t *testing.T) {
	c := newTestCache(3)
	defer c.Close()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	ctx := context.Background()
	c.Set(ctx, "k1", []byte("1"), 0)
	c.Set(ctx, "k2", []byte("2"), 0)
	c.Set(ctx, "k3", []byte("3"), 0)

	// Touch k1 so k2 becomes the least recently used
	c.Get(ctx, "k1")

	c.Set(ctx, "k4", []byte("4"), 0)

	if _, err := c.Get(ctx, "k2"); !cache.IsNotFound(err) {
		t.Error("k2 should have been evicted")
	}
	for _, key := range []string{"k1", "k3", "k4"} {
		if _, err := c.Get(ctx, key); err != nil {
			t.Errorf("%s should still be cached: %v", key, err)
		}
	}
}

func TestMemoryCache_OverwriteDoesNotEvict(t *testing.T) {
	c := newTestCache(2)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "k1", []byte("1"), 0)
	c.Set(ctx, "k2", []byte("2"), 0)
	c.Set(ctx, "k2", []byte("2b"), 0)

	if c.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", c.Len())
	}
	if _, err := c.Get(ctx, "k1"); err != nil {
		t.Errorf("k1 should not be evicted by an overwrite: %v", err)
	}
}

func TestMemoryCache_KeyValidation(t *testing.T) {
	c := newTestCache(0)
	defer c.Close()

	ctx := context.Background()
	for _, key := range []string{"", " lead", "a\nb", strings.Repeat("x", 300)} {
		if err := c.Set(ctx, key, []byte("v"), 0); err == nil {
			t.Errorf("Expected error for key %q", key)
		}
	}
}

func TestMemoryCache_Concurrency(t *testing.T) {
	c := newTestCache(50)
	defer c.Close()

	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (worker*100+j)%80)
				c.Set(ctx, key, []byte("v"), 0)
				c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("MaxSize exceeded: %d", c.Len())
	}
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c := newTestCache(0)
	c.Close()
	if err := c.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
	if err := c.Set(context.Background(), "k", []byte("v"), 0); err != cache.ErrLayerUnavailable {
		t.Errorf("Expected ErrLayerUnavailable after Close, got %v", err)
	}
}
