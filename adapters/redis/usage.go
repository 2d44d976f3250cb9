// Package redis provides an adapter to redis client
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsageCounter tracks served quote requests per origin in a rolling window.
// Counters are advisory (analytics and soft quotas), so expiry errors are
// tolerated.
type UsageCounter struct {
	client         *redis.Client
	expireDuration time.Duration
	keyPrefix      string
}

func NewUsageCounter(client *redis.Client, expireDuration time.Duration, keyPrefix string) *UsageCounter {
	return &UsageCounter{
		client:         client,
		expireDuration: expireDuration,
		keyPrefix:      keyPrefix,
	}
}

func (r *UsageCounter) IncQuoteCount(ctx context.Context, origin string) (uint64, error) {
	count, err := r.client.Incr(ctx, r.keyPrefix+origin).Result()
	if err != nil {
		return 0, err
	}
	// ignore expiry error as it is not critical
	_ = r.client.Expire(ctx, r.keyPrefix+origin, r.expireDuration).Err()
	return uint64(count), nil
}

func (r *UsageCounter) GetQuoteCount(ctx context.Context, origin string) (uint64, error) {
	count, err := r.client.Get(ctx, r.keyPrefix+origin).Int64()
	return uint64(count), err
}
