package store

import (
	"context"
	"time"
)

// ScoredMember is one entry of an ordered set.
type ScoredMember struct {
	Member string
	Score  float64
}

// CounterStore abstracts the shared key/value store used for rate-limit
// windows and authorization caches. All requests across all tenants share one
// store; callers namespace their keys. Every operation is a single round trip
// and must be invoked with a bounded context.
type CounterStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
