// Package config loads cache configuration from environment variables with
// sensible defaults.
//
// Environment Variables:
//
// Cache settings:
//   - CACHE_DRIVER: active driver - "memory", "lru", "redis", "file", "sqlite"
//     or "noop" (default: memory)
//   - CACHE_TTL: default time-to-live, Go duration syntax (default: none)
//   - CACHE_PREFIX: global key prefix (default: none)
//   - CACHE_MAX_SIZE: bounded size for the memory driver, 0 = unbounded
//   - CACHE_LRU_CAPACITY: capacity for the LRU driver (default: 1000)
//   - CACHE_DIR: storage directory for the file driver
//   - SQLITE_PATH: database path for the sqlite driver
//
// Redis settings:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Logging:
//   - LOG_LEVEL: debug, info, warn or error (default: info)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the cache manager.
type Config struct {
	Driver      string
	TTL         time.Duration
	Prefix      string
	MaxSize     int
	LRUCapacity int
	Directory   string
	SQLitePath  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	LogLevel string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Driver:      getEnv("CACHE_DRIVER", "memory"),
		TTL:         getDurationEnv("CACHE_TTL", 0),
		Prefix:      getEnv("CACHE_PREFIX", ""),
		MaxSize:     getIntEnv("CACHE_MAX_SIZE", 0),
		LRUCapacity: getIntEnv("CACHE_LRU_CAPACITY", 0),
		Directory:   getEnv("CACHE_DIR", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that the configured driver has what it needs to start.
func (c *Config) Validate() error {
	switch c.Driver {
	case "memory", "lru", "redis", "noop":
	case "file":
		if c.Directory == "" {
			return fmt.Errorf("CACHE_DIR is required for the file driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown cache driver %q", c.Driver)
	}

	if c.RedisDB < 0 || c.RedisDB > 15 {
		return fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.RedisDB)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("CACHE_MAX_SIZE must not be negative, got %d", c.MaxSize)
	}
	if c.LRUCapacity < 0 {
		return fmt.Errorf("CACHE_LRU_CAPACITY must not be negative, got %d", c.LRUCapacity)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
