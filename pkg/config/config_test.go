package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.False(t, c.Cache.Redis.Enabled)
	assert.False(t, c.Events.Enabled)
	assert.Empty(t, c.Gemini.APIKey)
	assert.Equal(t, 2500*time.Millisecond, c.Session.Transfer.SettleLatency)
	assert.Equal(t, 3000*time.Millisecond, c.Session.Transfer.ResetDelay)
}

func TestDecode_OverridesOnlyGivenFields(t *testing.T) {
	c := Default()
	err := Decode(strings.NewReader(`
server:
  address: ":9090"
cache:
  redis:
    enabled: true
    addr: "redis:6379"
  memory:
    max_size: 50
session:
  idle_ttl: 5m
  transfer:
    opening_balance: "2500.50"
gateway:
  cache_ttl: 30m
`), &c)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Server.Address)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "arithmitra:", c.Cache.Redis.KeyPrefix)
	assert.Equal(t, 50, c.Cache.Memory.MaxSize)
	assert.Equal(t, "L1-memory", c.Cache.Memory.Name)
	assert.Equal(t, 5*time.Minute, c.Session.IdleTTL)
	assert.True(t, c.Session.Transfer.OpeningBalance.Equal(decimal.RequireFromString("2500.50")))
	assert.Equal(t, 30*time.Minute, c.Gateway.CacheTTL)
	assert.Equal(t, 2500*time.Millisecond, c.Session.Transfer.SettleLatency)
	require.NoError(t, c.Validate())
}

func TestDecode_UnknownFieldIsAnError(t *testing.T) {
	c := Default()
	err := Decode(strings.NewReader("server:\n  adress: \":1\"\n"), &c)
	assert.Error(t, err)
}

func TestDecode_EmptyInput(t *testing.T) {
	c := Default()
	require.NoError(t, Decode(strings.NewReader("  \n"), &c))
	assert.Equal(t, Default().Server.Address, c.Server.Address)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	err := ApplyEnv(&c, env(map[string]string{
		"ARITHMITRA_ADDR":            ":7000",
		"ARITHMITRA_SESSION_TTL":     "45m",
		"ARITHMITRA_OPENING_BALANCE": "10000",
		"GEMINI_API_KEY":             "key-1",
		"REDIS_ADDR":                 "a:6379,b:6379",
		"NATS_URL":                   "nats://nats:4222",
		"LOG_LEVEL":                  "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.Server.Address)
	assert.Equal(t, 45*time.Minute, c.Session.IdleTTL)
	assert.True(t, c.Session.Transfer.OpeningBalance.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "key-1", c.Gemini.APIKey)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, []string{"a:6379", "b:6379"}, c.Cache.Redis.ClusterAddrs)
	assert.True(t, c.Events.Enabled)
	assert.Equal(t, "nats://nats:4222", c.Events.URL)
	assert.Equal(t, "debug", c.Logging.Level)
	require.NoError(t, c.Validate())
}

func TestApplyEnv_GeminiKeyWinsOverAPIKey(t *testing.T) {
	c := Default()
	require.NoError(t, ApplyEnv(&c, env(map[string]string{
		"API_KEY":        "fallback",
		"GEMINI_API_KEY": "preferred",
	})))
	assert.Equal(t, "preferred", c.Gemini.APIKey)

	c = Default()
	require.NoError(t, ApplyEnv(&c, env(map[string]string{"API_KEY": "fallback"})))
	assert.Equal(t, "fallback", c.Gemini.APIKey)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	c := Default()
	err := ApplyEnv(&c, env(map[string]string{
		"ARITHMITRA_SESSION_TTL":     "soon",
		"ARITHMITRA_OPENING_BALANCE": "lots",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARITHMITRA_SESSION_TTL")
	assert.Contains(t, err.Error(), "ARITHMITRA_OPENING_BALANCE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no address", func(c *Config) { c.Server.Address = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"redis without address", func(c *Config) {
			c.Cache.Redis.Enabled = true
			c.Cache.Redis.Addr = ""
		}},
		{"decay factor", func(c *Config) { c.Cache.DecayFactor = 0 }},
		{"bloom rate", func(c *Config) { c.Cache.Bloom.FalsePositiveRate = 1 }},
		{"events without url", func(c *Config) {
			c.Events.Enabled = true
			c.Events.URL = ""
		}},
		{"session ttl", func(c *Config) { c.Session.IdleTTL = 0 }},
		{"negative balance", func(c *Config) { c.Session.Transfer.OpeningBalance = decimal.NewFromInt(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_File(t *testing.T) {
	for _, key := range []string{"ARITHMITRA_ADDR", "REDIS_ADDR", "NATS_URL", "GEMINI_API_KEY", "API_KEY", "LOG_LEVEL", "LOG_FORMAT", "LOG_DEV"} {
		t.Setenv(key, "")
	}

	path := filepath.Join(t.TempDir(), "arithmitra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  namespace: finance\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "finance", c.Metrics.Namespace)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
