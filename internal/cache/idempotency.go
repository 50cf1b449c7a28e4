package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	// idem:{scope}:{key} -> created record id, or pendingMarker while creating
	keyIdempotency = "idem:%s:%s"
	pendingMarker  = "pending"

	TTLIdempotency = 24 * time.Hour
	ttlPending     = time.Minute
)

// IdempotencyCache remembers which record a client-supplied Idempotency-Key
// produced so that retried submissions do not create duplicates.
type IdempotencyCache struct {
	redis *RedisClient
}

// NewIdempotencyCache creates a new IdempotencyCache.
func NewIdempotencyCache(redis *RedisClient) *IdempotencyCache {
	return &IdempotencyCache{redis: redis}
}

// Reservation is the outcome of Reserve.
type Reservation struct {
	Acquired   bool   // caller owns the key and must Complete or Release it
	RecordID   string // id created by an earlier submission
	InProgress bool   // an earlier submission holds the key but has not finished
}

func (c *IdempotencyCache) key(scope, key string) string {
	return fmt.Sprintf(keyIdempotency, scope, key)
}

// Reserve claims key within scope, or reports what an earlier claim produced.
func (c *IdempotencyCache) Reserve(ctx context.Context, scope, key string) (Reservation, error) {
	k := c.key(scope, key)
	ok, err := c.redis.SetNX(ctx, k, pendingMarker, ttlPending)
	if err != nil {
		return Reservation{}, err
	}
	if ok {
		return Reservation{Acquired: true}, nil
	}

	v, err := c.redis.Get(ctx, k)
	if err != nil {
		return Reservation{}, err
	}
	switch v {
	case "":
		// Expired between SETNX and GET; try once more.
		ok, err := c.redis.SetNX(ctx, k, pendingMarker, ttlPending)
		if err != nil {
			return Reservation{}, err
		}
		return Reservation{Acquired: ok, InProgress: !ok}, nil
	case pendingMarker:
		return Reservation{InProgress: true}, nil
	default:
		return Reservation{RecordID: v}, nil
	}
}

// Complete records the id created for key.
func (c *IdempotencyCache) Complete(ctx context.Context, scope, key, recordID string) error {
	return c.redis.Set(ctx, c.key(scope, key), recordID, TTLIdempotency)
}

// Release drops a reservation after a failed submission so it can be retried.
func (c *IdempotencyCache) Release(ctx context.Context, scope, key string) error {
	return c.redis.Delete(ctx, c.key(scope, key))
}
