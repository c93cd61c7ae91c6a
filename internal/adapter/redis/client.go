package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 5 * time.Second
)

func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(dialCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s (ping failed): %w", cfg.Addr, err)
	}
	return client, nil
}

// HealthChecker reports whether Redis answers a PING.
type HealthChecker struct {
	client *redis.Client
}

func NewHealthChecker(client *redis.Client) *HealthChecker {
	return &HealthChecker{client: client}
}

func (h *HealthChecker) Check(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
