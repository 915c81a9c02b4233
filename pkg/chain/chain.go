package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arithmitra/pkg/cache"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/metrics"
	"arithmitra/pkg/resilience"
	"arithmitra/pkg/writer"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Chain looks assessment results up through layers ordered fastest (L1)
// to slowest (LN) and warms the upper layers on a lower-layer hit.
type Chain struct {
	layers  []cache.Layer
	writers []*writer.AsyncWriter
	sf      singleflight.Group
	ttl     TTLStrategy
	baseTTL time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// Config tunes a Chain.
type Config struct {
	// BaseTTL is used when Set is called with a zero ttl and for warm-up.
	BaseTTL time.Duration `yaml:"base_ttl"`

	// L1Timeout and LowerTimeout bound calls to the first and deeper layers.
	L1Timeout    time.Duration `yaml:"l1_timeout"`
	LowerTimeout time.Duration `yaml:"lower_timeout"`

	Writer writer.AsyncWriterConfig `yaml:"writer"`

	// Resilience is applied to every layer with the per-layer timeout above.
	Resilience resilience.Config `yaml:"resilience"`

	TTLStrategy TTLStrategy       `yaml:"-"`
	Metrics     metrics.Collector `yaml:"-"`
}

// DefaultConfig returns the chain defaults.
func DefaultConfig() Config {
	return Config{
		BaseTTL:      time.Hour,
		L1Timeout:    100 * time.Millisecond,
		LowerTimeout: time.Second,
		Writer:       writer.DefaultAsyncWriterConfig(),
		Resilience:   resilience.DefaultConfig(),
		TTLStrategy:  DecayingTTLStrategy{DecayFactor: 0.5},
	}
}

// New creates a chain with the default configuration.
func New(layers ...cache.Layer) (*Chain, error) {
	return NewWithConfig(DefaultConfig(), layers...)
}

// NewWithConfig creates a chain. Every layer is wrapped with resilience
// protection and gets its own warm-up writer.
func NewWithConfig(config Config, layers ...cache.Layer) (*Chain, error) {
	if len(layers) == 0 {
		return nil, errors.New("chain: at least one layer required")
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NoOpCollector{}
	}
	if config.TTLStrategy == nil {
		config.TTLStrategy = UniformTTLStrategy{}
	}
	if config.BaseTTL <= 0 {
		config.BaseTTL = time.Hour
	}

	resilientLayers := make([]cache.Layer, len(layers))
	for i, layer := range layers {
		rc := config.Resilience
		if rc.Validate() != nil {
			rc = resilience.DefaultConfig()
		}
		if i == 0 {
			rc = rc.WithTimeout(config.L1Timeout)
		} else {
			rc = rc.WithTimeout(config.LowerTimeout)
		}
		resilientLayers[i] = resilience.NewResilientLayerWithMetrics(layer, rc, config.Metrics)
	}

	writers := make([]*writer.AsyncWriter, len(resilientLayers))
	for i, layer := range resilientLayers {
		writers[i] = writer.NewAsyncWriterWithMetrics(layer, config.Writer, config.Metrics)
	}

	c := &Chain{
		layers:  resilientLayers,
		writers: writers,
		ttl:     config.TTLStrategy,
		baseTTL: config.BaseTTL,
		metrics: config.Metrics,
		logger:  logging.L().Named("chain"),
	}
	c.logger.Info("cache chain initialized", zap.String("layers", c.String()))
	return c, nil
}

// Get returns the first hit walking down the chain. Concurrent Gets for the
// same key share one traversal.
func (c *Chain) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		return c.getWithFallback(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Chain) getWithFallback(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var lastErr error

	for i, layer := range c.layers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		value, err := layer.Get(ctx, key)
		if err != nil {
			// Misses and unavailable layers both fall through to the next layer.
			if !cache.IsNotFound(err) {
				c.logger.Debug("layer skipped",
					zap.String("layer", layer.Name()),
					zap.String("reason", cache.ClassifyError(err)),
				)
			}
			lastErr = err
			continue
		}

		if i > 0 {
			c.warmUpperLayers(ctx, key, value, i)
		}
		c.metrics.RecordChainGet(true, i, time.Since(start))
		return value, nil
	}

	c.metrics.RecordChainGet(false, -1, time.Since(start))
	if lastErr == nil || !cache.IsNotFound(lastErr) {
		return nil, fmt.Errorf("%w: %v", cache.ErrKeyNotFound, lastErr)
	}
	return nil, lastErr
}

func (c *Chain) warmUpperLayers(ctx context.Context, key string, value []byte, hitIndex int) {
	for i := hitIndex - 1; i >= 0; i-- {
		ttl := c.ttl.GetTTL(i, len(c.layers), c.baseTTL)
		if err := c.writers[i].Write(ctx, key, value, ttl); err != nil {
			c.logger.Debug("warm-up not queued",
				zap.String("layer", c.layers[i].Name()),
				zap.Error(err),
			)
		}
	}
}

// Set writes the value to all layers. Every layer is attempted; the last
// error is returned.
func (c *Chain) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.baseTTL
	}

	var lastErr error
	for i, layer := range c.layers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := layer.Set(ctx, key, value, c.ttl.GetTTL(i, len(c.layers), ttl)); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Delete removes the key from all layers.
func (c *Chain) Delete(ctx context.Context, key string) error {
	var lastErr error
	for _, layer := range c.layers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := layer.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Flush waits for pending warm-up writes.
func (c *Chain) Flush(timeout time.Duration) error {
	for _, w := range c.writers {
		if err := w.Flush(timeout); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns warm-up writer statistics keyed by layer name.
func (c *Chain) Stats() map[string]writer.AsyncWriterStats {
	stats := make(map[string]writer.AsyncWriterStats, len(c.writers))
	for i, w := range c.writers {
		stats[c.layers[i].Name()] = w.Stats()
	}
	return stats
}

// Close stops the writers and then closes every layer.
func (c *Chain) Close() error {
	var lastErr error
	for _, w := range c.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	for _, layer := range c.layers {
		if err := layer.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Len returns the number of layers in the chain.
func (c *Chain) Len() int {
	return len(c.layers)
}

// String returns a description such as "chain(2 layers): L1-memory -> bloom(L2-redis)".
func (c *Chain) String() string {
	names := make([]string, len(c.layers))
	for i, layer := range c.layers {
		names[i] = layer.Name()
	}
	return fmt.Sprintf("chain(%d layers): %s", len(c.layers), strings.Join(names, " -> "))
}
