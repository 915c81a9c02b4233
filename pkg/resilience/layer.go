package resilience

import (
	"context"
	"errors"
	"time"

	"arithmitra/pkg/cache"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"

	"go.uber.org/zap"
)

// ResilientLayer wraps a cache.Layer with a Breaker. Misses and rejected
// keys do not count as failures; only backend errors trip the circuit.
type ResilientLayer struct {
	layer   cache.Layer
	breaker *Breaker
	metrics metrics.Collector
	logger  *logging.Logger
}

// NewResilientLayer wraps layer with circuit breaker and timeout protection.
func NewResilientLayer(layer cache.Layer, config Config) *ResilientLayer {
	return NewResilientLayerWithMetrics(layer, config, metrics.NoOpCollector{})
}

// NewResilientLayerWithMetrics wraps layer and reports to collector.
func NewResilientLayerWithMetrics(layer cache.Layer, config Config, collector metrics.Collector) *ResilientLayer {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	config = config.WithIsSuccessful(isCacheSuccess)

	return &ResilientLayer{
		layer:   layer,
		breaker: NewBreaker(layer.Name(), config, collector),
		metrics: collector,
		logger:  logging.L().Named("resilience").Named(layer.Name()),
	}
}

func isCacheSuccess(err error) bool {
	return cache.IsNotFound(err) ||
		errors.Is(err, cache.ErrInvalidKey) ||
		errors.Is(err, cache.ErrInvalidValue)
}

// Name returns the name of the underlying cache layer.
func (rl *ResilientLayer) Name() string {
	return rl.layer.Name()
}

// State returns the circuit state of the layer.
func (rl *ResilientLayer) State() metrics.CircuitState {
	return rl.breaker.State()
}

// Get retrieves a value with timeout and circuit breaker protection.
func (rl *ResilientLayer) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	result, err := rl.breaker.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return rl.layer.Get(ctx, key)
	})

	rl.metrics.RecordCacheGet(rl.Name(), err == nil, time.Since(start))

	if err != nil {
		err = rl.translate(err)
		if !cache.IsNotFound(err) {
			rl.logger.Warn("get operation failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}

	value, _ := result.([]byte)
	return value, nil
}

// Set stores a value with timeout and circuit breaker protection.
func (rl *ResilientLayer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()

	_, err := rl.breaker.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, rl.layer.Set(ctx, key, value, ttl)
	})

	rl.metrics.RecordCacheSet(rl.Name(), err == nil, time.Since(start))

	if err != nil {
		err = rl.translate(err)
		rl.logger.Warn("set operation failed",
			zap.String("key", key),
			zap.Duration("ttl", ttl),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Delete removes a value with timeout and circuit breaker protection.
func (rl *ResilientLayer) Delete(ctx context.Context, key string) error {
	start := time.Now()

	_, err := rl.breaker.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, rl.layer.Delete(ctx, key)
	})

	rl.metrics.RecordCacheDelete(rl.Name(), err == nil, time.Since(start))

	if err != nil {
		err = rl.translate(err)
		rl.logger.Warn("delete operation failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the underlying cache layer.
func (rl *ResilientLayer) Close() error {
	return rl.layer.Close()
}

// translate maps breaker errors onto the cache error set.
func (rl *ResilientLayer) translate(err error) error {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return cache.WrapError(cache.ErrCircuitOpen, rl.Name(), "call")
	case errors.Is(err, ErrTimeout):
		return cache.WrapError(cache.ErrTimeout, rl.Name(), "call")
	default:
		return err
	}
}
