package resilience

import (
	"fmt"
	"time"
)

// Config configures a Breaker: a per-call timeout plus a circuit breaker.
type Config struct {
	// Timeout bounds each guarded call; 0 disables it
	Timeout time.Duration `yaml:"timeout"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxRequests is the number of calls allowed through while half-open.
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state after which counts
	// are cleared. 0 never clears.
	Interval time.Duration `yaml:"interval"`

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration `yaml:"open_timeout"`

	// ConsecutiveFailures trips the breaker when ReadyToTrip is nil.
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`

	// ReadyToTrip overrides the consecutive failure rule.
	ReadyToTrip func(counts Counts) bool `yaml:"-"`

	// IsSuccessful decides which errors do not count against the breaker.
	// nil counts every non-nil error as a failure.
	IsSuccessful func(err error) bool `yaml:"-"`
}

// Counts holds the numbers of requests and their successes/failures.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// DefaultConfig guards the cache layers.
func DefaultConfig() Config {
	return Config{
		Timeout: time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:         1,
			Interval:            60 * time.Second,
			Timeout:             10 * time.Second,
			ConsecutiveFailures: 5,
		},
	}
}

// DefaultModelConfig guards calls to the hosted model. Structured
// assessments are single round trips; chat streams override the timeout.
func DefaultModelConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:         1,
			Interval:            2 * time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 3,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("resilience: negative timeout %v", c.Timeout)
	}
	if c.CircuitBreaker.Timeout < 0 || c.CircuitBreaker.Interval < 0 {
		return fmt.Errorf("resilience: negative circuit breaker period")
	}
	if c.CircuitBreaker.ReadyToTrip == nil && c.CircuitBreaker.ConsecutiveFailures == 0 {
		return fmt.Errorf("resilience: consecutive_failures must be positive")
	}
	return nil
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// WithCircuitBreakerTimeout returns a copy of the config with the specified open period.
func (c Config) WithCircuitBreakerTimeout(timeout time.Duration) Config {
	c.CircuitBreaker.Timeout = timeout
	return c
}

// WithIsSuccessful returns a copy of the config that ignores errors accepted by fn.
func (c Config) WithIsSuccessful(fn func(err error) bool) Config {
	c.CircuitBreaker.IsSuccessful = fn
	return c
}

func (c CircuitBreakerConfig) readyToTrip(counts Counts) bool {
	if c.ReadyToTrip != nil {
		return c.ReadyToTrip(counts)
	}
	threshold := c.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return counts.ConsecutiveFailures >= threshold
}
