package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bl:"

// Redis shares the blacklist between replicas. Keys carry a PX expiry equal
// to the remaining credential lifetime, so Redis does the sweeping.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedis returns a Store backed by client. now may be nil.
func NewRedis(client redis.UniversalClient, now func() time.Time) *Redis {
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, now: now}
}

func (r *Redis) Revoke(ctx context.Context, tokenID string, naturalExpiry time.Time) error {
	ttl := naturalExpiry.Sub(r.now())
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	// The natural expiry of a given jti never changes, so overwriting is safe.
	if err := r.client.Set(ctx, redisKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Sweep is a no-op, keys expire on their own.
func (r *Redis) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (r *Redis) Len() int { return -1 }

// Ping checks connectivity for readiness probes.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
