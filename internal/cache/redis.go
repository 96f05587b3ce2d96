package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/charukaonline/uninest-sub000/internal/config"
)

// NewRedis builds the shared client and verifies connectivity.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return r, nil
}
