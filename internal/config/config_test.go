package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "memory", cfg.Driver)
	assert.Equal(t, time.Duration(0), cfg.TTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10, cfg.RedisPoolSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("CACHE_PREFIX", "svc")
	t.Setenv("REDIS_ADDRESS", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	assert.Equal(t, "redis", cfg.Driver)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, "svc", cfg.Prefix)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddress)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestUnparseableValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL", "sometime")
	t.Setenv("REDIS_POOL_SIZE", "many")

	cfg := Load()

	assert.Equal(t, time.Duration(0), cfg.TTL)
	assert.Equal(t, 10, cfg.RedisPoolSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Driver = "etcd" },
			wantErr: true,
		},
		{
			name:    "file driver requires a directory",
			mutate:  func(c *Config) { c.Driver = "file" },
			wantErr: true,
		},
		{
			name: "file driver with directory",
			mutate: func(c *Config) {
				c.Driver = "file"
				c.Directory = "/var/cache/app"
			},
		},
		{
			name:    "sqlite driver requires a path",
			mutate:  func(c *Config) { c.Driver = "sqlite" },
			wantErr: true,
		},
		{
			name: "sqlite driver with path",
			mutate: func(c *Config) {
				c.Driver = "sqlite"
				c.SQLitePath = ":memory:"
			},
		},
		{
			name:    "redis db out of range",
			mutate:  func(c *Config) { c.RedisDB = 16 },
			wantErr: true,
		},
		{
			name:    "negative max size",
			mutate:  func(c *Config) { c.MaxSize = -1 },
			wantErr: true,
		},
		{
			name:    "negative lru capacity",
			mutate:  func(c *Config) { c.LRUCapacity = -5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
