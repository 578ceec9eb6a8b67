// Package idempotency reserves client-generated sale submission keys so a
// replayed offline submission resolves to the sale it already created.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker is stored while the first submission with a key is in flight.
const pendingMarker = "pending"

// PendingTTL bounds how long a reservation whose holder never completes or
// releases it keeps answering ErrInFlight.
const PendingTTL = 2 * time.Minute

// ErrInFlight means another request holding the same key has not finished.
var ErrInFlight = errors.New("a submission with this idempotency key is still being processed")

// Store reserves keys scoped to a tenant.
type Store interface {
	// Reserve claims key. When the key already resolved to a sale, that
	// sale's id is returned with reserved=false.
	Reserve(ctx context.Context, tenantID, key string) (saleID string, reserved bool, err error)
	// Complete binds a reserved key to the committed sale.
	Complete(ctx context.Context, tenantID, key, saleID string) error
	// Release drops a reservation after a failed submission so it can be retried.
	Release(ctx context.Context, tenantID, key string) error
}

type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	pendingTTL := PendingTTL
	if ttl < pendingTTL {
		pendingTTL = ttl
	}
	return &RedisStore{client: client, ttl: ttl, pendingTTL: pendingTTL}
}

func redisKey(tenantID, key string) string {
	return fmt.Sprintf("pos:sale:idem:%s:%s", tenantID, key)
}

func (s *RedisStore) Reserve(ctx context.Context, tenantID, key string) (string, bool, error) {
	k := redisKey(tenantID, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.pendingTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return "", true, nil
		}
		return "", false, ErrInFlight
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return "", false, ErrInFlight
	}
	return val, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, tenantID, key, saleID string) error {
	return s.client.Set(ctx, redisKey(tenantID, key), saleID, s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, tenantID, key string) error {
	return s.client.Del(ctx, redisKey(tenantID, key)).Err()
}
