package redisdb

import (
	"github.com/redis/go-redis/v9"
	"akamai-analyzer/internal/config"
)

// NewClient returns a client for the configured Redis, or nil when no
// address is set so callers can fall back to in-process state.
func NewClient(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
