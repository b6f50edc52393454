package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/models"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to one cache database and verifies it responds.
// The two cache tiers use separate databases, so this is called once per
// tier.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping %s: %v", models.ErrResourceUnavailable, cfg.Address, err)
	}
	return client, nil
}
