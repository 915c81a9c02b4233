package chain

import (
	"math"
	"time"
)

// TTLStrategy picks the TTL applied to each layer on Set and warm-up.
type TTLStrategy interface {
	// GetTTL returns the TTL for layerIndex in a chain of layerCount layers.
	GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration
}

// UniformTTLStrategy uses the same TTL for all layers.
type UniformTTLStrategy struct{}

// GetTTL returns baseTTL.
func (UniformTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	return baseTTL
}

// DecayingTTLStrategy shortens TTLs for the faster layers so L1 refreshes
// from the shared layer more often than the shared layer expires.
type DecayingTTLStrategy struct {
	DecayFactor float64 // 0.5 halves the TTL per layer towards L1
}

// GetTTL returns baseTTL for the last layer and baseTTL*factor^k for the
// layer k positions above it.
func (s DecayingTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	if s.DecayFactor <= 0 || s.DecayFactor >= 1 || layerCount <= 1 {
		return baseTTL
	}

	exponent := float64(layerCount - layerIndex - 1)
	if exponent < 0 {
		exponent = 0
	}
	return time.Duration(float64(baseTTL) * math.Pow(s.DecayFactor, exponent))
}

// CustomTTLStrategy uses explicit TTL values for each layer.
type CustomTTLStrategy struct {
	TTLs []time.Duration
}

// GetTTL returns the configured TTL for a layer, or baseTTL if not specified.
func (s CustomTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	if layerIndex < len(s.TTLs) && s.TTLs[layerIndex] > 0 {
		return s.TTLs[layerIndex]
	}
	return baseTTL
}
