package bloom

import (
	"context"
	"sync"
	"time"

	"arithmitra/pkg/cache"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomLayer puts a bloom filter in front of a slower layer (normally Redis).
// Keys that were never Set in this process are answered as misses without a
// round-trip; Seed lets a restarted process learn keys that already exist remotely.
type BloomLayer struct {
	layer cache.Layer

	mu                sync.RWMutex
	filter            *bloom.BloomFilter
	expectedItems     uint
	falsePositiveRate float64

	totalQueries   uint64
	bloomRejected  uint64
	falsePositives uint64
}

// NewBloomLayer wraps layer with a filter sized for expectedItems.
func NewBloomLayer(layer cache.Layer, expectedItems uint, falsePositiveRate float64) *BloomLayer {
	if expectedItems == 0 {
		expectedItems = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	return &BloomLayer{
		layer:             layer,
		filter:            bloom.NewWithEstimates(expectedItems, falsePositiveRate),
		expectedItems:     expectedItems,
		falsePositiveRate: falsePositiveRate,
	}
}

// Name returns the wrapped layer's name.
func (bl *BloomLayer) Name() string {
	return "bloom(" + bl.layer.Name() + ")"
}

// Get skips the wrapped layer when the filter proves the key absent.
func (bl *BloomLayer) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bl.mu.Lock()
	bl.totalQueries++
	if !bl.filter.TestString(key) {
		bl.bloomRejected++
		bl.mu.Unlock()
		return nil, cache.ErrKeyNotFound
	}
	bl.mu.Unlock()

	value, err := bl.layer.Get(ctx, key)
	if cache.IsNotFound(err) {
		bl.mu.Lock()
		bl.falsePositives++
		bl.mu.Unlock()
	}

	return value, err
}

// Set records the key in the filter and stores the value.
func (bl *BloomLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bl.mu.Lock()
	bl.filter.AddString(key)
	bl.mu.Unlock()

	return bl.layer.Set(ctx, key, value, ttl)
}

// Delete removes the key from the wrapped layer. Bloom filters cannot forget,
// so a later Get costs one extra lookup.
func (bl *BloomLayer) Delete(ctx context.Context, key string) error {
	return bl.layer.Delete(ctx, key)
}

// Seed marks keys as possibly present.
func (bl *BloomLayer) Seed(keys []string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	for _, key := range keys {
		bl.filter.AddString(key)
	}
}

// Close closes the wrapped layer.
func (bl *BloomLayer) Close() error {
	return bl.layer.Close()
}

// Reset clears the filter and its counters.
func (bl *BloomLayer) Reset() {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.filter = bloom.NewWithEstimates(bl.expectedItems, bl.falsePositiveRate)
	bl.totalQueries = 0
	bl.bloomRejected = 0
	bl.falsePositives = 0
}

// Stats returns filter effectiveness counters.
func (bl *BloomLayer) Stats() BloomStats {
	bl.mu.RLock()
	defer bl.mu.RUnlock()

	stats := BloomStats{
		TotalQueries:   bl.totalQueries,
		BloomRejected:  bl.bloomRejected,
		FalsePositives: bl.falsePositives,
		FilterCapacity: bl.filter.Cap(),
	}

	if bl.totalQueries > 0 {
		stats.RejectionRate = float64(bl.bloomRejected) / float64(bl.totalQueries)
		if queried := bl.totalQueries - bl.bloomRejected; queried > 0 {
			stats.FalsePositiveRate = float64(bl.falsePositives) / float64(queried)
		}
	}

	return stats
}

// BloomStats holds statistics about bloom filter performance.
type BloomStats struct {
	TotalQueries      uint64
	BloomRejected     uint64
	FalsePositives    uint64
	RejectionRate     float64
	FalsePositiveRate float64
	FilterCapacity    uint
}
