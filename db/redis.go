package db

import (
	"context"
	"time"

	"nas-collector/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const pingTimeout = 3 * time.Second

type RedisConfig struct {
	Network  string
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedisConnection returns a client for cfg. An unreachable server is only
// logged; the client reconnects on its own on the next command.
func NewRedisConnection(cfg RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Network:      cfg.Network,
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		MaxRetries:   -1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Unable To Connect To Redis")
	}
	return client
}
