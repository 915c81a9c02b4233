package cache

import (
	"context"
	"time"
)

// Layer is one tier of the assessment result cache.
// Values are the validated JSON payloads returned by the inference endpoint,
// so every layer stores opaque bytes and never interprets them.
type Layer interface {
	// Get returns the payload stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload under key for ttl. A zero ttl means the layer default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Name identifies the layer in logs and metrics (e.g. "L1-memory", "L2-redis").
	Name() string

	// Close releases any resources held by the layer.
	Close() error
}
