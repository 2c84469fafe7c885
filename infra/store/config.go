package store

import "fmt"

// Backend names for the alert store.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `json:"addr"`
	// Password is the optional AUTH password.
	Password string `json:"password"`
	// DB selects the logical database.
	DB int `json:"db"`
}

// Config selects and configures the alert store backend.
type Config struct {
	// Backend is "memory" or "redis".
	Backend string      `json:"backend"`
	Redis   RedisConfig `json:"redis"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
}
