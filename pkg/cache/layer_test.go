package cache_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"arithmitra/pkg/cache"
	"arithmitra/pkg/cache/bloom"
	"arithmitra/pkg/cache/memory"
)

// testLayerContract checks the behaviour every cache.Layer must share.
func testLayerContract(t *testing.T, layer cache.Layer) {
	t.Helper()
	ctx := context.Background()

	if _, err := layer.Get(ctx, "assess:fraud:missing"); !cache.IsNotFound(err) {
		t.Fatalf("Get on a missing key should be a miss, got %v", err)
	}

	payload := []byte(`{"isScam":true,"riskScore":90}`)
	if err := layer.Set(ctx, "assess:fraud:a1", payload, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := layer.Get(ctx, "assess:fraud:a1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get = %s, want %s", got, payload)
	}

	if err := layer.Delete(ctx, "assess:fraud:a1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := layer.Get(ctx, "assess:fraud:a1"); !cache.IsNotFound(err) {
		t.Errorf("Get after Delete should be a miss, got %v", err)
	}
	if err := layer.Delete(ctx, "assess:fraud:a1"); err != nil {
		t.Errorf("Deleting a missing key should succeed, got %v", err)
	}

	if layer.Name() == "" {
		t.Error("Name should not be empty")
	}
}

func TestLayerContract_Memory(t *testing.T) {
	layer := memory.NewMemoryCache(memory.DefaultMemoryCacheConfig())
	defer layer.Close()

	testLayerContract(t, layer)
}

func TestLayerContract_BloomOverMemory(t *testing.T) {
	layer := bloom.NewBloomLayer(memory.NewMemoryCache(memory.DefaultMemoryCacheConfig()), 1000, 0.01)
	defer layer.Close()

	testLayerContract(t, layer)
}
