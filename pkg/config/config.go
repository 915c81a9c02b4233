// Package config assembles the service configuration from defaults, an
// optional YAML file and environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"arithmitra/pkg/api"
	"arithmitra/pkg/cache/memory"
	"arithmitra/pkg/cache/redis"
	"arithmitra/pkg/chain"
	"arithmitra/pkg/events"
	"arithmitra/pkg/gateway"
	"arithmitra/pkg/gateway/gemini"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/session"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the service's own environment variables.
const EnvPrefix = "ARITHMITRA_"

// Config is the whole service configuration.
type Config struct {
	Server  api.ServerConfig `yaml:"server"`
	Logging logging.Config   `yaml:"logging"`
	Metrics MetricsConfig    `yaml:"metrics"`
	Cache   CacheConfig      `yaml:"cache"`
	Gateway gateway.Config   `yaml:"gateway"`
	Gemini  gemini.Config    `yaml:"gemini"`
	Events  EventsConfig     `yaml:"events"`
	Session session.Config   `yaml:"session"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// CacheConfig configures the assessment result chain.
type CacheConfig struct {
	Memory memory.MemoryCacheConfig `yaml:"memory"`
	Redis  redis.RedisCacheConfig   `yaml:"redis"`
	Bloom  BloomConfig              `yaml:"bloom"`
	Chain  chain.Config             `yaml:"chain"`

	// DecayFactor shortens the TTL of upper layers (1 = same TTL everywhere)
	DecayFactor float64 `yaml:"decay_factor"`
}

// BloomConfig sizes the filter in front of Redis.
type BloomConfig struct {
	Enabled           bool    `yaml:"enabled"`
	ExpectedItems     uint    `yaml:"expected_items"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
}

// EventsConfig configures transfer event publishing. Disabled means events
// are dropped.
type EventsConfig struct {
	Enabled       bool `yaml:"enabled"`
	events.Config `yaml:",inline"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server:  api.DefaultServerConfig(),
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{Namespace: "arithmitra"},
		Cache: CacheConfig{
			Memory:      memory.DefaultMemoryCacheConfig(),
			Redis:       redis.DefaultRedisCacheConfig(),
			Bloom:       BloomConfig{Enabled: true, ExpectedItems: 100000, FalsePositiveRate: 0.01},
			Chain:       chain.DefaultConfig(),
			DecayFactor: 0.5,
		},
		Gateway: gateway.DefaultConfig(),
		Gemini:  gemini.DefaultConfig(),
		Events:  EventsConfig{Config: events.DefaultConfig()},
		Session: session.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path when
// path is not empty, then the environment. The result is validated.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		defer f.Close()

		if err := Decode(f, &config); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnv(&config, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Decode reads YAML from r over config. Unknown fields are an error.
func Decode(r io.Reader, config *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("config: read: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil {
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}

// ApplyEnv overrides config from the environment as read by getenv.
//
//	ARITHMITRA_ADDR             server listen address
//	ARITHMITRA_SESSION_TTL      session idle ttl (duration)
//	ARITHMITRA_OPENING_BALANCE  wallet balance of new sessions
//	ARITHMITRA_SETTLE_LATENCY   simulated settlement time (duration)
//	ARITHMITRA_METRICS_NAMESPACE
//	ARITHMITRA_GEMINI_MODEL
//	GEMINI_API_KEY or API_KEY   enables the hosted model
//	REDIS_ADDR                  enables the Redis layer
//	REDIS_PASSWORD
//	NATS_URL                    enables transfer events
//	LOG_LEVEL, LOG_FORMAT, LOG_DEV
func ApplyEnv(config *Config, getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	duration := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		*dst = d
	}

	str(EnvPrefix+"ADDR", &config.Server.Address)
	str(EnvPrefix+"METRICS_NAMESPACE", &config.Metrics.Namespace)
	str(EnvPrefix+"GEMINI_MODEL", &config.Gemini.Model)
	duration(EnvPrefix+"SESSION_TTL", &config.Session.IdleTTL)
	duration(EnvPrefix+"SETTLE_LATENCY", &config.Session.Transfer.SettleLatency)

	if v := strings.TrimSpace(getenv(EnvPrefix + "OPENING_BALANCE")); v != "" {
		balance, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sOPENING_BALANCE: %w", EnvPrefix, err))
		} else {
			config.Session.Transfer.OpeningBalance = balance
		}
	}

	str("API_KEY", &config.Gemini.APIKey)
	str("GEMINI_API_KEY", &config.Gemini.APIKey)

	if addr := strings.TrimSpace(getenv("REDIS_ADDR")); addr != "" {
		if strings.Contains(addr, ",") {
			config.Cache.Redis.ClusterAddrs = strings.Split(addr, ",")
		} else {
			config.Cache.Redis.Addr = addr
		}
		config.Cache.Redis.Enabled = true
	}
	str("REDIS_PASSWORD", &config.Cache.Redis.Password)

	if url := strings.TrimSpace(getenv("NATS_URL")); url != "" {
		config.Events.URL = url
		config.Events.Enabled = true
	}

	config.Logging = logging.ApplyEnv(config.Logging, getenv)

	return errors.Join(errs...)
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("config: server address is required"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Namespace == "" {
		errs = append(errs, errors.New("config: metrics namespace is required"))
	}
	if err := c.Cache.Memory.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: cache.memory: %w", err))
	}
	if c.Cache.Redis.Enabled {
		if err := c.Cache.Redis.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: cache.redis: %w", err))
		}
		if c.Cache.Redis.Addr == "" && len(c.Cache.Redis.ClusterAddrs) == 0 {
			errs = append(errs, errors.New("config: cache.redis: address is required"))
		}
	}
	if c.Cache.DecayFactor <= 0 || c.Cache.DecayFactor > 1 {
		errs = append(errs, errors.New("config: cache.decay_factor must be in (0, 1]"))
	}
	if b := c.Cache.Bloom; b.Enabled && (b.FalsePositiveRate <= 0 || b.FalsePositiveRate >= 1) {
		errs = append(errs, errors.New("config: cache.bloom.false_positive_rate must be in (0, 1)"))
	}
	if err := c.Cache.Chain.Resilience.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: cache.chain.resilience: %w", err))
	}
	if err := c.Gateway.Breaker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.breaker: %w", err))
	}
	if c.Events.Enabled && c.Events.URL == "" {
		errs = append(errs, errors.New("config: events.url is required when events are enabled"))
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}
