// Package redisdb builds the Redis client backing the shared CMS token slot.
package redisdb

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	coreconfig "github.com/MelnikovEI/fish-shop/core/config"
	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

// Connect opens a Redis connection and verifies it with a ping.
func Connect(cfg coreconfig.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.DB.Error("redis connect failed",
			slog.String("event", "redis.connect"),
			slog.String("addr", cfg.Addr),
			slog.String("err", err.Error()),
		)
		_ = client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	logger.DB.Info("redis connected",
		slog.String("event", "redis.connect"),
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", logger.Took(start)),
	)
	return client, nil
}
