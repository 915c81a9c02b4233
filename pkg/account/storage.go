package account

import (
	"context"
	"errors"
	"sync"
	"time"

	"arithmitra/pkg/cache"
)

// ErrNotFound is returned by Storage.Get for a missing key.
var ErrNotFound = errors.New("account: key not found")

// Storage is a string-keyed blob store.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps blobs in process.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// LayerStorage stores blobs in a cache layer, normally Redis, so accounts
// survive a restart while the layer keeps them.
type LayerStorage struct {
	layer cache.Layer
	ttl   time.Duration
}

// NewLayerStorage stores every blob in layer for ttl. A zero ttl means the
// layer default.
func NewLayerStorage(layer cache.Layer, ttl time.Duration) *LayerStorage {
	return &LayerStorage{layer: layer, ttl: ttl}
}

func (s *LayerStorage) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.layer.Get(ctx, key)
	if cache.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *LayerStorage) Set(ctx context.Context, key string, value []byte) error {
	return s.layer.Set(ctx, key, value, s.ttl)
}

func (s *LayerStorage) Delete(ctx context.Context, key string) error {
	return s.layer.Delete(ctx, key)
}
