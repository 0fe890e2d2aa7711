package redis

import (
	"cache-manager/internal/common/errors"
)

// Config holds the connection settings for the redis driver.
type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// Validate implements drivers.DriverConfig.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.ConfigError("redis: address is required")
	}
	if c.DB < 0 || c.DB > 15 {
		return errors.ConfigError("redis: db must be between 0 and 15")
	}
	return nil
}

// GetType implements drivers.DriverConfig.
func (c *Config) GetType() string {
	return "redis"
}

func (c *Config) poolSize() int {
	if c.PoolSize <= 0 {
		return 10
	}
	return c.PoolSize
}
