package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryGuard remembers webhook deliveries already accepted
type DeliveryGuard interface {
	// FirstDelivery reports true the first time key is seen within the TTL
	FirstDelivery(ctx context.Context, key string) (bool, error)
	// Forget drops key so a retried delivery is processed again
	Forget(ctx context.Context, key string) error
}

// RedisDeliveryGuard DeliveryGuard backed by redis SETNX
type RedisDeliveryGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDeliveryGuard creates a guard; ttl defaults to 10 minutes
func NewRedisDeliveryGuard(rdb *redis.Client, ttl time.Duration) *RedisDeliveryGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisDeliveryGuard{rdb: rdb, ttl: ttl, prefix: "equipcheck:webhook:"}
}

func (g *RedisDeliveryGuard) FirstDelivery(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, g.prefix+key, 1, g.ttl).Result()
}

func (g *RedisDeliveryGuard) Forget(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, g.prefix+key).Err()
}
