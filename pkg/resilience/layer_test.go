package resilience

import (
	"context"
	"testing"
	"time"

	"arithmitra/pkg/cache"
	"arithmitra/pkg/cache/memory"
	"arithmitra/pkg/cache/mock"
	metricsmemory "arithmitra/pkg/metrics/memory"
)

func newMemoryLayer(name string) *memory.MemoryCache {
	config := memory.DefaultMemoryCacheConfig()
	config.Name = name
	return memory.NewMemoryCache(config)
}

func TestNewResilientLayer(t *testing.T) {
	rl := NewResilientLayer(newMemoryLayer("test"), DefaultConfig())
	defer rl.Close()

	if rl.Name() != "test" {
		t.Errorf("Expected name 'test', got '%s'", rl.Name())
	}
}

func TestResilientLayer_SetGetDelete(t *testing.T) {
	mc := metricsmemory.NewMemoryCollector()
	rl := NewResilientLayerWithMetrics(newMemoryLayer("test"), DefaultConfig(), mc)
	defer rl.Close()
	ctx := context.Background()

	if err := rl.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := rl.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("Expected 'value1', got '%s'", val)
	}

	if err := rl.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := rl.Get(ctx, "key1"); !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}

	lm := mc.Snapshot().Layers["test"]
	if lm.Hits != 1 || lm.Misses != 1 || lm.Sets != 1 || lm.Deletes != 1 {
		t.Errorf("Unexpected layer metrics: %+v", lm)
	}
}

func TestResilientLayer_CacheMissDoesNotTripCircuit(t *testing.T) {
	config := DefaultConfig()
	config.CircuitBreaker.ReadyToTrip = func(counts Counts) bool {
		return counts.TotalFailures >= 3
	}

	rl := NewResilientLayer(newMemoryLayer("miss"), config)
	defer rl.Close()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := rl.Get(ctx, "nonexistent-key")
		if !cache.IsNotFound(err) {
			t.Fatalf("Miss %d: expected ErrKeyNotFound, got %v", i, err)
		}
	}

	if err := rl.Set(ctx, "key1", []byte("value1"), time.Hour); err != nil {
		t.Fatalf("Set failed after misses: %v", err)
	}
}

func TestResilientLayer_RealErrorsTripCircuit(t *testing.T) {
	failing := mock.NewMockLayer("failing")
	failing.GetFunc = func(ctx context.Context, key string) ([]byte, error) {
		return nil, cache.ErrLayerUnavailable
	}

	rl := NewResilientLayer(failing, DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := rl.Get(ctx, "key1")
		if !cache.IsUnavailable(err) {
			t.Errorf("Call %d: expected unavailable error, got %v", i, err)
		}
	}

	if failing.GetCalls() != 5 {
		t.Errorf("Expected the breaker to stop calls after 5 failures, got %d calls", failing.GetCalls())
	}
}

func TestResilientLayer_Timeout(t *testing.T) {
	slow := mock.NewMockLayer("slow")
	slow.GetFunc = func(ctx context.Context, key string) ([]byte, error) {
		select {
		case <-time.After(time.Second):
			return []byte("late"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	rl := NewResilientLayer(slow, DefaultConfig().WithTimeout(20*time.Millisecond))

	_, err := rl.Get(context.Background(), "key1")
	if !cache.IsTimeout(err) {
		t.Errorf("Expected timeout, got %v", err)
	}
}
