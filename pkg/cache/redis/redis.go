package redis

import (
	"context"
	"fmt"
	"time"

	"arithmitra/pkg/cache"

	"github.com/redis/rueidis"
)

// RedisCache is the shared L2 layer. It lets several service instances reuse
// each other's assessment results.
type RedisCache struct {
	client rueidis.Client
	config RedisCacheConfig
}

// RedisCacheConfig configures the Redis layer.
type RedisCacheConfig struct {
	cache.LayerConfig `yaml:",inline"`

	// Addr is the server address for single node mode (e.g. "localhost:6379").
	Addr string `yaml:"addr"`
	// ClusterAddrs enables cluster mode when set.
	ClusterAddrs []string `yaml:"cluster_addrs"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	// DB is the database number; cluster mode only supports 0.
	DB           int           `yaml:"db"`
	KeyPrefix    string        `yaml:"key_prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultRedisCacheConfig returns the single-node defaults.
func DefaultRedisCacheConfig() RedisCacheConfig {
	return RedisCacheConfig{
		LayerConfig: cache.LayerConfig{
			Name:       "L2-redis",
			DefaultTTL: time.Hour,
			MaxTTL:     24 * time.Hour,
		},
		Addr:         "localhost:6379",
		KeyPrefix:    "arithmitra:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisCache connects and pings the server.
func NewRedisCache(config RedisCacheConfig) (*RedisCache, error) {
	if config.Name == "" {
		config.Name = "L2-redis"
	}

	var initAddress []string
	switch {
	case len(config.ClusterAddrs) > 0:
		initAddress = config.ClusterAddrs
	case config.Addr != "":
		initAddress = []string{config.Addr}
	default:
		return nil, fmt.Errorf("redis: no addresses configured (set Addr or ClusterAddrs)")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		MaxFlushDelay:    100 * time.Microsecond,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	r := &RedisCache{client: client, config: config}

	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return r, nil
}

// Get returns the raw payload stored under key.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, err
	}

	resp := r.client.Do(ctx, r.client.B().Get().Key(r.config.KeyPrefix+key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, cache.ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("redis get: failed to read response: %w", err)
	}
	return data, nil
}

// Set stores the payload with the effective ttl.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		return cache.ErrInvalidValue
	}

	ttl = r.config.EffectiveTTL(ttl)
	cmd := r.client.B().Set().Key(r.config.KeyPrefix + key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	if err := r.client.Do(ctx, r.client.B().Del().Key(r.config.KeyPrefix+key).Build()).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Keys lists stored keys matching pattern, without the configured prefix.
// Used at startup to seed the bloom filter.
func (r *RedisCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	resp := r.client.Do(ctx, r.client.B().Keys().Pattern(r.config.KeyPrefix+pattern).Build())
	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}

	keys, err := resp.AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("redis keys: failed to read response: %w", err)
	}

	prefixLen := len(r.config.KeyPrefix)
	for i, key := range keys {
		if len(key) >= prefixLen {
			keys[i] = key[prefixLen:]
		}
	}
	return keys, nil
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Name returns the layer name.
func (r *RedisCache) Name() string {
	return r.config.Name
}

// Close closes the client.
func (r *RedisCache) Close() error {
	r.client.Close()
	return nil
}
