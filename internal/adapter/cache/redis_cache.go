package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/ttran/storefront-api/internal/entity"
	"github.com/ttran/storefront-api/internal/usecase"
)

// RedisCache holds the payment status of recently settled orders so the
// success page can poll without hitting MySQL. Best-effort only.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) SetPaymentStatus(ctx context.Context, orderID string, status domain.PaymentStatus) error {
	return r.rdb.Set(ctx, "order:payment:"+orderID, string(status), r.ttl).Err()
}

func (r *RedisCache) GetPaymentStatus(ctx context.Context, orderID string) (domain.PaymentStatus, bool, error) {
	val, err := r.rdb.Get(ctx, "order:payment:"+orderID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.PaymentStatus(val), true, nil
}

var _ usecase.OrderCache = (*RedisCache)(nil)
