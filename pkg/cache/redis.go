package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings for the shared cache client.
type Config struct {
	Address  string // host:port
	Password string // empty if no password
	DB       int    // database number (0-15)
}

// RedisConfig mirrors the main config package's Redis section so the server
// can hand it over without importing this package's Config directly.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
}

var client *redis.Client

// NewConfigFromRedisConfig converts the application Redis settings into a
// cache Config. An explicit Addr wins over Host:Port.
func NewConfigFromRedisConfig(rc RedisConfig) Config {
	address := rc.Addr
	if address == "" {
		address = rc.Host + ":" + rc.Port
	}

	return Config{
		Address:  address,
		Password: rc.Password,
		DB:       rc.DB,
	}
}

// Init connects the shared cache client and verifies the connection. Club
// settings and pricing-rule reads degrade to the database when this fails,
// so the caller may treat the error as non-fatal.
func Init(cfg Config) error {
	if cfg.Address == "" {
		return fmt.Errorf("redis address cannot be empty")
	}

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	client = c
	return nil
}

// InitWithRedisConfig initializes the client from the application's Redis
// settings.
func InitWithRedisConfig(rc RedisConfig) error {
	return Init(NewConfigFromRedisConfig(rc))
}

// Client returns the shared Redis client, or nil before a successful Init.
func Client() *redis.Client {
	return client
}

// IsInitialized reports whether Init has succeeded.
func IsInitialized() bool {
	return client != nil
}

// Close shuts the shared client down.
func Close() error {
	if client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}

	client = nil
	return nil
}
