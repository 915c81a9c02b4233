package cache

import (
	"fmt"
	"time"
)

// LayerConfig holds the TTL policy shared by every layer implementation.
type LayerConfig struct {
	// Name is the identifier for this layer (e.g., "L1-memory", "L2-redis")
	Name string `yaml:"name"`

	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// MaxTTL caps any requested ttl; 0 means uncapped
	MaxTTL time.Duration `yaml:"max_ttl"`

	// Enabled indicates whether this layer takes part in the chain
	Enabled bool `yaml:"enabled"`
}

// Validate checks if the configuration is valid.
func (c *LayerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: layer name is required", ErrInvalidValue)
	}
	if c.DefaultTTL < 0 || c.MaxTTL < 0 {
		return fmt.Errorf("%w: negative ttl", ErrInvalidValue)
	}
	if c.MaxTTL > 0 && c.DefaultTTL > c.MaxTTL {
		return fmt.Errorf("%w: default ttl exceeds max ttl", ErrInvalidValue)
	}
	return nil
}

// EffectiveTTL returns the ttl to apply for a requested one.
// Zero or negative means DefaultTTL; anything above MaxTTL is capped.
func (c *LayerConfig) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	if c.MaxTTL > 0 && ttl > c.MaxTTL {
		return c.MaxTTL
	}
	return ttl
}
